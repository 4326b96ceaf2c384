// Package inmemory implements the content repository and a snapshot
// transaction manager in process memory.
package inmemory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

// Operation names passed to the failure hook.
const (
	OpCreate              = "Create"
	OpInsertRecordRow     = "InsertRecordRow"
	OpInsertMetadata      = "InsertMetadata"
	OpInsertRelations     = "InsertRelations"
	OpIncrementTermCounts = "IncrementTermCounts"
)

// FailureHook is consulted before each write. call is the 1-based number of
// times op has been invoked. A non-nil return fails the write.
type FailureHook func(op string, call int) error

type state struct {
	nextRecord int64
	nextTerm   int64
	records    map[int64]model.RecordRow
	meta       map[int64][]model.MetaEntry
	relations  map[int64][]model.TermRelation
	terms      map[int64]model.Term
}

func newState() *state {
	return &state{
		records:   make(map[int64]model.RecordRow),
		meta:      make(map[int64][]model.MetaEntry),
		relations: make(map[int64][]model.TermRelation),
		terms:     make(map[int64]model.Term),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextRecord: s.nextRecord,
		nextTerm:   s.nextTerm,
		records:    make(map[int64]model.RecordRow, len(s.records)),
		meta:       make(map[int64][]model.MetaEntry, len(s.meta)),
		relations:  make(map[int64][]model.TermRelation, len(s.relations)),
		terms:      make(map[int64]model.Term, len(s.terms)),
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.meta {
		c.meta[k] = append([]model.MetaEntry(nil), v...)
	}
	for k, v := range s.relations {
		c.relations[k] = append([]model.TermRelation(nil), v...)
	}
	for k, v := range s.terms {
		c.terms[k] = v
	}
	return c
}

// Store is a ContentRepository, RowStore and TransactionManager over maps.
// It allows one open transaction at a time; Rollback restores the state
// captured by Begin.
type Store struct {
	mu            sync.Mutex
	st            *state
	snapshot      *state
	openTx        *memTx
	transactional bool
	hook          FailureHook
	calls         map[string]int
}

// NewStore returns an empty, transactional Store.
func NewStore() *Store {
	return &Store{st: newState(), transactional: true, calls: make(map[string]int)}
}

// SetTransactional controls the SupportsTransactions answer.
func (s *Store) SetTransactional(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactional = v
}

// SetFailureHook installs hook, or removes it when nil.
func (s *Store) SetFailureHook(hook FailureHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) before(op string) error {
	s.calls[op]++
	if s.hook == nil {
		return nil
	}
	if err := s.hook(op, s.calls[op]); err != nil {
		return exception.NewStorageWriteError("inmemory."+op, "injected failure", err)
	}
	return nil
}

type memTx struct{ id string }

func (t *memTx) ID() string { return t.id }

// Begin implements tx.TransactionManager.
func (s *Store) Begin(ctx context.Context, _ ...*sql.TxOptions) (tx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openTx != nil {
		return nil, fmt.Errorf("transaction %s already open", s.openTx.id)
	}
	s.snapshot = s.st.clone()
	s.openTx = &memTx{id: uuid.NewString()}
	return s.openTx, nil
}

// Commit implements tx.TransactionManager.
func (s *Store) Commit(t tx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.openTx || s.openTx == nil {
		return fmt.Errorf("transaction %v is not open", t)
	}
	s.snapshot, s.openTx = nil, nil
	return nil
}

// Rollback implements tx.TransactionManager.
func (s *Store) Rollback(t tx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.openTx || s.openTx == nil {
		return fmt.Errorf("transaction %v is not open", t)
	}
	s.st, s.snapshot, s.openTx = s.snapshot, nil, nil
	return nil
}

// InTransaction reports whether a transaction is open.
func (s *Store) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openTx != nil
}

// Create implements repository.ContentRepository.
func (s *Store) Create(ctx context.Context, kind model.EntityKind, fields model.RecordFields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.before(OpCreate); err != nil {
		return 0, err
	}
	row := fields.Row
	row.Kind = kind.RecordType()
	if row.Status == "" {
		row.Status = model.StatusPublish
	}
	if row.GUID == "" {
		row.GUID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	id := s.insertRow(row)
	s.st.meta[id] = append([]model.MetaEntry(nil), fields.Meta...)
	seen := make(map[int64]bool)
	for _, termID := range fields.TermIDs {
		if seen[termID] {
			continue
		}
		seen[termID] = true
		s.st.relations[id] = append(s.st.relations[id], model.TermRelation{TermTaxonomyID: termID})
		if term, ok := s.st.terms[termID]; ok {
			term.Count++
			s.st.terms[termID] = term
		}
	}
	return id, nil
}

func (s *Store) insertRow(row model.RecordRow) int64 {
	s.st.nextRecord++
	row.ID = s.st.nextRecord
	s.st.records[row.ID] = row
	return row.ID
}

func (s *Store) matches(row model.RecordRow, kind model.EntityKind, filter model.Filter) bool {
	if row.Kind != kind.RecordType() {
		return false
	}
	if filter.Status != "" && row.Status != filter.Status {
		return false
	}
	if filter.TopLevelOnly && row.ParentID != 0 {
		return false
	}
	if filter.GeneratedOnly {
		v, _ := model.FindMeta(s.st.meta[row.ID], model.MetaGeneratedMarker)
		return v == model.GeneratedMarkerValue
	}
	return true
}

func (s *Store) listIDs(kind model.EntityKind, filter model.Filter) []int64 {
	var ids []int64
	for id, row := range s.st.records {
		if s.matches(row, kind, filter) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count implements repository.ContentRepository.
func (s *Store) Count(ctx context.Context, kind model.EntityKind, filter model.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.listIDs(kind, filter))), nil
}

// ListIDs implements repository.ContentRepository.
func (s *Store) ListIDs(ctx context.Context, kind model.EntityKind, filter model.Filter) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listIDs(kind, filter), nil
}

// Delete implements repository.ContentRepository.
func (s *Store) Delete(ctx context.Context, kind model.EntityKind, filter model.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.listIDs(kind, filter)
	if len(ids) == 0 {
		return 0, nil
	}
	targets := make(map[int64]bool, len(ids))
	for _, id := range ids {
		targets[id] = true
	}
	for id, row := range s.st.records {
		if targets[row.ParentID] {
			targets[id] = true
		}
	}
	for id := range targets {
		for _, rel := range s.st.relations[id] {
			if term, ok := s.st.terms[rel.TermTaxonomyID]; ok {
				term.Count--
				s.st.terms[rel.TermTaxonomyID] = term
			}
		}
		delete(s.st.relations, id)
		delete(s.st.meta, id)
		delete(s.st.records, id)
	}
	return int64(len(targets)), nil
}

// UpsertTerm implements repository.ContentRepository.
func (s *Store) UpsertTerm(ctx context.Context, name, taxonomy string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	for id, term := range s.st.terms {
		if term.Taxonomy == taxonomy && term.Slug == slug {
			return id, nil
		}
	}
	s.st.nextTerm++
	id := s.st.nextTerm
	s.st.terms[id] = model.Term{ID: id, Name: name, Slug: slug, Taxonomy: taxonomy}
	return id, nil
}

// DeleteTerms implements repository.ContentRepository.
func (s *Store) DeleteTerms(ctx context.Context, taxonomy, slug string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, term := range s.st.terms {
		if term.Taxonomy != taxonomy || (slug != "" && term.Slug != slug) {
			continue
		}
		delete(s.st.terms, id)
		removed++
		for recordID, rels := range s.st.relations {
			kept := rels[:0]
			for _, rel := range rels {
				if rel.TermTaxonomyID != id {
					kept = append(kept, rel)
				}
			}
			s.st.relations[recordID] = kept
		}
	}
	return removed, nil
}

// ReadMetaValue implements repository.ContentRepository.
func (s *Store) ReadMetaValue(ctx context.Context, id int64, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := model.FindMeta(s.st.meta[id], key)
	return v, nil
}

// ReadRecordRow implements repository.RowStore.
func (s *Store) ReadRecordRow(ctx context.Context, id int64) (model.RecordRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.records[id]
	if !ok {
		return model.RecordRow{}, exception.NewStorageWriteError("inmemory.ReadRecordRow", fmt.Sprintf("record %d not found", id), nil)
	}
	return row, nil
}

// InsertRecordRow implements repository.RowStore.
func (s *Store) InsertRecordRow(ctx context.Context, row model.RecordRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.before(OpInsertRecordRow); err != nil {
		return 0, err
	}
	return s.insertRow(row), nil
}

// ReadMetadata implements repository.RowStore.
func (s *Store) ReadMetadata(ctx context.Context, id int64) ([]model.MetaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.MetaEntry(nil), s.st.meta[id]...), nil
}

// InsertMetadata implements repository.RowStore.
func (s *Store) InsertMetadata(ctx context.Context, id int64, entries []model.MetaEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.before(OpInsertMetadata); err != nil {
		return err
	}
	s.st.meta[id] = append(s.st.meta[id], entries...)
	return nil
}

// ReadRelations implements repository.RowStore.
func (s *Store) ReadRelations(ctx context.Context, id int64) ([]model.TermRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TermRelation(nil), s.st.relations[id]...), nil
}

// InsertRelations implements repository.RowStore.
func (s *Store) InsertRelations(ctx context.Context, id int64, relations []model.TermRelation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.before(OpInsertRelations); err != nil {
		return err
	}
	s.st.relations[id] = append(s.st.relations[id], relations...)
	return nil
}

// IncrementTermCounts implements repository.RowStore.
func (s *Store) IncrementTermCounts(ctx context.Context, termIDs []int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(termIDs) == 0 {
		return nil
	}
	if err := s.before(OpIncrementTermCounts); err != nil {
		return err
	}
	updated := 0
	for _, id := range termIDs {
		if term, ok := s.st.terms[id]; ok {
			term.Count += delta
			s.st.terms[id] = term
			updated++
		}
	}
	if updated == 0 {
		return exception.NewStorageWriteError("inmemory.IncrementTermCounts", fmt.Sprintf("no term count updated for terms %v", termIDs), nil)
	}
	return nil
}

// SupportsTransactions implements repository.RowStore.
func (s *Store) SupportsTransactions(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactional, nil
}

// Term returns the term with id.
func (s *Store) Term(id int64) (model.Term, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	term, ok := s.st.terms[id]
	return term, ok
}

// Children returns the ids of the records whose parent is parentID, ascending.
func (s *Store) Children(parentID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, row := range s.st.records {
		if row.ParentID == parentID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RecordCount returns the number of stored records of every kind.
func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.records)
}

var (
	_ repository.ContentRepository = (*Store)(nil)
	_ repository.RowStore          = (*Store)(nil)
	_ tx.TransactionManager        = (*Store)(nil)
)
