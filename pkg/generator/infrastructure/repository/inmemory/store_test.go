package inmemory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

func TestRollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	kept, err := s.Create(ctx, model.KindVenue, model.RecordFields{Row: model.RecordRow{Title: "kept"}})
	require.NoError(t, err)

	err = tx.RunInTransaction(ctx, s, func(ctx context.Context) error {
		_, err := s.InsertRecordRow(ctx, model.RecordRow{Kind: "event", ParentID: kept})
		require.NoError(t, err)
		assert.True(t, s.InTransaction())
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, s.InTransaction())
	assert.Equal(t, 1, s.RecordCount())
	assert.Empty(t, s.Children(kept))
}

func TestFailureHookInjectsStorageError(t *testing.T) {
	s := NewStore()
	s.SetFailureHook(func(op string, call int) error {
		if op == OpInsertRecordRow && call == 2 {
			return errors.New("disk full")
		}
		return nil
	})

	_, err := s.InsertRecordRow(context.Background(), model.RecordRow{})
	require.NoError(t, err)
	_, err = s.InsertRecordRow(context.Background(), model.RecordRow{})
	assert.ErrorIs(t, err, exception.ErrStorageWrite)
	assert.Equal(t, 2, s.Calls(OpInsertRecordRow))
}

func TestDeleteGeneratedCascadesAndDecrementsTerms(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	term, err := s.UpsertTerm(ctx, "Generated", model.TaxonomyEventCategory)
	require.NoError(t, err)

	parent, err := s.Create(ctx, model.KindEvent, model.RecordFields{
		Meta:    []model.MetaEntry{{Key: model.MetaGeneratedMarker, Value: "1"}},
		TermIDs: []int64{term},
	})
	require.NoError(t, err)
	child, err := s.InsertRecordRow(ctx, model.RecordRow{Kind: "event", ParentID: parent})
	require.NoError(t, err)
	require.NoError(t, s.InsertRelations(ctx, child, []model.TermRelation{{TermTaxonomyID: term}}))
	require.NoError(t, s.IncrementTermCounts(ctx, []int64{term}, 1))

	removed, err := s.Delete(ctx, model.KindEvent, model.Filter{GeneratedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	got, _ := s.Term(term)
	assert.Zero(t, got.Count)
}

func TestIncrementUnknownTermsFails(t *testing.T) {
	err := NewStore().IncrementTermCounts(context.Background(), []int64{7}, 1)
	assert.ErrorIs(t, err, exception.ErrStorageWrite)
}
