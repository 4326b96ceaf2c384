// Package creator stores generated records, one Creator per entity kind.
package creator

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

const moduleName = "creator"

// Creator creates n records of one kind shaped by params. It returns the ids
// of the records it created, including those created before a failure.
type Creator interface {
	Kind() model.EntityKind
	Create(ctx context.Context, n int, params model.EntityQuantity) ([]int64, error)
}

// CreatorGroup is the fx value group every Creator joins.
const CreatorGroup = "creators"

// Set indexes creators by kind.
type Set map[model.EntityKind]Creator

// NewSet builds a Set. A kind registered twice is a configuration error.
func NewSet(creators ...Creator) (Set, error) {
	set := make(Set, len(creators))
	for _, c := range creators {
		if _, dup := set[c.Kind()]; dup {
			return nil, fmt.Errorf("creator for %s registered twice", c.Kind())
		}
		set[c.Kind()] = c
	}
	return set, nil
}

// CandidateCache keeps the ids of existing venues, organizers and uploads that
// events link to. Entries are loaded on first use and dropped by Invalidate.
type CandidateCache struct {
	repo repository.ContentRepository

	mu  sync.Mutex
	ids map[model.EntityKind][]int64
}

// NewCandidateCache creates an empty CandidateCache.
func NewCandidateCache(repo repository.ContentRepository) *CandidateCache {
	return &CandidateCache{repo: repo, ids: make(map[model.EntityKind][]int64)}
}

// IDs returns the ids of the top-level records of kind.
func (c *CandidateCache) IDs(ctx context.Context, kind model.EntityKind) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ids, ok := c.ids[kind]; ok {
		return ids, nil
	}
	ids, err := c.repo.ListIDs(ctx, kind, model.Filter{TopLevelOnly: true})
	if err != nil {
		return nil, err
	}
	c.ids[kind] = ids
	return ids, nil
}

// Invalidate drops the cached ids of kind.
func (c *CandidateCache) Invalidate(kind model.EntityKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, kind)
}

func storageError(op, message string, err error) error {
	if exception.KindOf(err) == exception.KindStorageWrite {
		return err
	}
	return exception.NewStorageWriteError(op, message, err)
}
