// Package occurrence expands recurrence rules and writes the occurrences of a
// recurring event.
//
// Expand turns a parent's first instance and a Rule into the dates of the
// remaining instances, keeping the wall-clock time of the event's zone across
// daylight saving changes. The parent itself is never part of the result.
//
// Occurrences are stored as child records of the parent. Two writers exist:
//
//   - FastOccurrenceInserter reads a snapshot of the parent once and clones its
//     row, metadata and term links onto every occurrence, then raises the term
//     counts in a single update. All of it happens in one transaction; a failure
//     at any step leaves no occurrence behind and surfaces as a StorageWriteError.
//     Stores that cannot roll back refuse it with an UnsupportedFastPathError.
//   - RowByRowInserter creates each occurrence through the ordinary repository
//     path. Occurrences written before a failure are kept.
//
// Both produce the same records. Per-occurrence dates are written in the event
// zone and in UTC, and recomputed parent keys such as the dates and the
// recurrence rule itself are not copied.
package occurrence

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

const moduleName = "occurrence"

// OccurrenceWriter stores the occurrences of record parentID.
type OccurrenceWriter interface {
	InsertOccurrences(ctx context.Context, parentID int64, occurrences []model.Occurrence) error
}

// FastOccurrenceInserter clones the parent's row, metadata and term links onto
// every occurrence inside a single transaction.
type FastOccurrenceInserter struct {
	store    repository.RowStore
	tm       tx.TransactionManager
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer

	mu        sync.Mutex
	supported *bool
}

// NewFastOccurrenceInserter creates a FastOccurrenceInserter.
func NewFastOccurrenceInserter(store repository.RowStore, tm tx.TransactionManager, recorder metrics.MetricRecorder, tracer metrics.Tracer) *FastOccurrenceInserter {
	return &FastOccurrenceInserter{store: store, tm: tm, recorder: recorder, tracer: tracer}
}

// Supported reports whether the store can write occurrences atomically. A
// successful answer is kept for the life of the inserter; errors are not.
func (f *FastOccurrenceInserter) Supported(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.supported != nil {
		return *f.supported, nil
	}
	ok, err := f.store.SupportsTransactions(ctx)
	if err != nil {
		return false, err
	}
	f.supported = &ok
	return ok, nil
}

// InsertOccurrences implements OccurrenceWriter. It joins the transaction in ctx
// or runs its own; on any failure nothing is committed and a StorageWriteError
// is returned.
func (f *FastOccurrenceInserter) InsertOccurrences(ctx context.Context, parentID int64, occurrences []model.Occurrence) error {
	const op = "FastOccurrenceInserter.InsertOccurrences"

	ok, err := f.Supported(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return exception.NewUnsupportedFastPathError(op, "content tables are not transactional; use the row-by-row insert")
	}
	if len(occurrences) == 0 {
		return nil
	}

	ctx, end := f.tracer.StartSpan(ctx, "occurrence.fast_insert", map[string]interface{}{
		"parent_id":   parentID,
		"occurrences": len(occurrences),
	})
	defer end()

	err = tx.RunInTransaction(ctx, f.tm, func(txCtx context.Context) error {
		return f.insert(txCtx, parentID, occurrences)
	})
	if err != nil {
		f.recorder.RecordFastPathRollback(ctx)
		f.tracer.RecordError(ctx, moduleName, err)
		if exception.KindOf(err) != exception.KindStorageWrite {
			err = exception.NewStorageWriteError(op, fmt.Sprintf("failed to insert occurrences of event %d", parentID), err)
		}
		return err
	}

	f.recorder.RecordOccurrences(ctx, metrics.PathFast, len(occurrences))
	logger.Debugf("Inserted %d occurrences of event %d in one transaction.", len(occurrences), parentID)
	return nil
}

func (f *FastOccurrenceInserter) insert(ctx context.Context, parentID int64, occurrences []model.Occurrence) error {
	const op = "FastOccurrenceInserter.insert"

	snap, err := Snapshot(ctx, f.store, parentID)
	if err != nil {
		return err
	}
	for i, occ := range occurrences {
		id, err := f.store.InsertRecordRow(ctx, snap.Row)
		if err != nil {
			return err
		}
		if id == 0 {
			return exception.NewStorageWriteError(op, fmt.Sprintf("no id returned for occurrence %d of event %d", i+1, parentID), nil)
		}
		if err := f.store.InsertMetadata(ctx, id, OccurrenceMeta(snap, occ)); err != nil {
			return err
		}
		if err := f.store.InsertRelations(ctx, id, snap.Relations); err != nil {
			return err
		}
	}
	return f.store.IncrementTermCounts(ctx, snap.TermIDs(), int64(len(occurrences)))
}

// RowByRowInserter creates each occurrence as an ordinary record. It is not
// atomic unless ctx carries a transaction.
type RowByRowInserter struct {
	repo     repository.ContentRepository
	store    repository.RowStore
	recorder metrics.MetricRecorder
}

// NewRowByRowInserter creates a RowByRowInserter.
func NewRowByRowInserter(repo repository.ContentRepository, store repository.RowStore, recorder metrics.MetricRecorder) *RowByRowInserter {
	return &RowByRowInserter{repo: repo, store: store, recorder: recorder}
}

// InsertOccurrences implements OccurrenceWriter.
func (r *RowByRowInserter) InsertOccurrences(ctx context.Context, parentID int64, occurrences []model.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}
	snap, err := Snapshot(ctx, r.store, parentID)
	if err != nil {
		return err
	}
	termIDs := snap.TermIDs()
	for i, occ := range occurrences {
		fields := model.RecordFields{Row: snap.Row, Meta: OccurrenceMeta(snap, occ), TermIDs: termIDs}
		if _, err := r.repo.Create(ctx, model.KindEvent, fields); err != nil {
			r.recorder.RecordOccurrences(ctx, metrics.PathRowByRow, i)
			return err
		}
	}
	r.recorder.RecordOccurrences(ctx, metrics.PathRowByRow, len(occurrences))
	return nil
}

var (
	_ OccurrenceWriter = (*FastOccurrenceInserter)(nil)
	_ OccurrenceWriter = (*RowByRowInserter)(nil)
)
