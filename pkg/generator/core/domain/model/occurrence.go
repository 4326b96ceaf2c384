package model

import "time"

// Occurrence is one materialized instance of a recurring event.
type Occurrence struct {
	Start    time.Time
	Duration time.Duration
}

// End returns Start plus Duration.
func (o Occurrence) End() time.Time {
	return o.Start.Add(o.Duration)
}

// ParentRecordSnapshot is the part of a recurring event copied onto each occurrence.
// It is captured once per bulk insert and not modified afterwards.
type ParentRecordSnapshot struct {
	// Row has its identity cleared and ParentID set to the parent's ID.
	Row RecordRow
	// Meta excludes the per-occurrence keys, which are recomputed.
	Meta []MetaEntry
	// Relations are the parent's term links.
	Relations []TermRelation
	// Location is the event's time zone, UTC when the parent has none.
	Location *time.Location
}

// TermIDs returns the distinct term ids linked from the snapshot.
func (s ParentRecordSnapshot) TermIDs() []int64 {
	seen := make(map[int64]struct{}, len(s.Relations))
	ids := make([]int64, 0, len(s.Relations))
	for _, rel := range s.Relations {
		if _, ok := seen[rel.TermTaxonomyID]; ok {
			continue
		}
		seen[rel.TermTaxonomyID] = struct{}{}
		ids = append(ids, rel.TermTaxonomyID)
	}
	return ids
}
