package occurrence

import (
	"context"
	"strconv"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// A snapshot is read once per parent and shared by every occurrence.

// clonedMetaDenylist are the parent keys recomputed per occurrence or not carried over.
var clonedMetaDenylist = map[string]struct{}{
	model.MetaModifiedFields:    {},
	model.MetaEventStartDate:    {},
	model.MetaEventEndDate:      {},
	model.MetaEventStartDateUTC: {},
	model.MetaEventEndDateUTC:   {},
	model.MetaEventDuration:     {},
	model.MetaEventRecurrence:   {},
}

// Snapshot reads the parts of record parentID copied onto its occurrences.
func Snapshot(ctx context.Context, store repository.RowStore, parentID int64) (model.ParentRecordSnapshot, error) {
	row, err := store.ReadRecordRow(ctx, parentID)
	if err != nil {
		return model.ParentRecordSnapshot{}, err
	}
	row.ID = 0
	row.ParentID = parentID

	meta, err := store.ReadMetadata(ctx, parentID)
	if err != nil {
		return model.ParentRecordSnapshot{}, err
	}
	relations, err := store.ReadRelations(ctx, parentID)
	if err != nil {
		return model.ParentRecordSnapshot{}, err
	}

	loc := time.UTC
	if name, ok := model.FindMeta(meta, model.MetaEventTimezone); ok && name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		} else {
			logger.Warnf("Event %d has unknown time zone '%s'; using UTC.", parentID, name)
		}
	}

	cloned := make([]model.MetaEntry, 0, len(meta))
	for _, m := range meta {
		if _, skip := clonedMetaDenylist[m.Key]; !skip {
			cloned = append(cloned, m)
		}
	}
	return model.ParentRecordSnapshot{Row: row, Meta: cloned, Relations: relations, Location: loc}, nil
}

// OccurrenceMeta is the metadata of one occurrence: the cloned parent entries
// followed by its dates in the event zone and in UTC and its duration in seconds.
func OccurrenceMeta(snap model.ParentRecordSnapshot, occ model.Occurrence) []model.MetaEntry {
	loc := snap.Location
	if loc == nil {
		loc = time.UTC
	}
	start := occ.Start.UTC()
	end := occ.End().UTC()

	meta := make([]model.MetaEntry, 0, len(snap.Meta)+5)
	meta = append(meta, snap.Meta...)
	return append(meta,
		model.MetaEntry{Key: model.MetaEventStartDate, Value: start.In(loc).Format(model.DateTimeLayout)},
		model.MetaEntry{Key: model.MetaEventEndDate, Value: end.In(loc).Format(model.DateTimeLayout)},
		model.MetaEntry{Key: model.MetaEventStartDateUTC, Value: start.Format(model.DateTimeLayout)},
		model.MetaEntry{Key: model.MetaEventEndDateUTC, Value: end.Format(model.DateTimeLayout)},
		model.MetaEntry{Key: model.MetaEventDuration, Value: strconv.FormatInt(int64(occ.Duration/time.Second), 10)},
	)
}
