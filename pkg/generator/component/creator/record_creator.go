package creator

import (
	"context"

	"github.com/tigerroll/eventgen/pkg/generator/component/content"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// RecordCreator creates organizers or venues from random fields.
type RecordCreator struct {
	kind     model.EntityKind
	repo     repository.ContentRepository
	provider *content.Provider
	cache    *CandidateCache
	recorder metrics.MetricRecorder
}

// NewOrganizerCreator creates the organizer Creator.
func NewOrganizerCreator(repo repository.ContentRepository, provider *content.Provider, cache *CandidateCache, recorder metrics.MetricRecorder) *RecordCreator {
	return &RecordCreator{kind: model.KindOrganizer, repo: repo, provider: provider, cache: cache, recorder: recorder}
}

// NewVenueCreator creates the venue Creator.
func NewVenueCreator(repo repository.ContentRepository, provider *content.Provider, cache *CandidateCache, recorder metrics.MetricRecorder) *RecordCreator {
	return &RecordCreator{kind: model.KindVenue, repo: repo, provider: provider, cache: cache, recorder: recorder}
}

// Kind implements Creator.
func (c *RecordCreator) Kind() model.EntityKind { return c.kind }

// Create implements Creator.
func (c *RecordCreator) Create(ctx context.Context, n int, _ model.EntityQuantity) ([]int64, error) {
	ids := make([]int64, 0, n)
	defer func() {
		if len(ids) > 0 {
			c.cache.Invalidate(c.kind)
			c.recorder.RecordRecordsCreated(ctx, c.kind, len(ids))
		}
	}()

	for i := 0; i < n; i++ {
		id, err := c.repo.Create(ctx, c.kind, c.provider.RandomFields(c.kind))
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	logger.Debugf("Created %d %s.", len(ids), c.kind)
	return ids, nil
}
