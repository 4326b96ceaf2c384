// Package repository defines the storage interfaces the generator writes through.
// Every method runs inside the transaction carried by ctx (see tx.WithTx) when
// there is one, and on the plain connection otherwise.
package repository

import (
	"context"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

// ContentRepository is the record-level API used by the creators.
type ContentRepository interface {
	// Create stores a record of kind with its metadata and term links, and bumps
	// each linked term's count by one. It returns the new record id.
	Create(ctx context.Context, kind model.EntityKind, fields model.RecordFields) (int64, error)
	// Count counts records of kind matching filter.
	Count(ctx context.Context, kind model.EntityKind, filter model.Filter) (int64, error)
	// ListIDs returns the ids of records of kind matching filter.
	ListIDs(ctx context.Context, kind model.EntityKind, filter model.Filter) ([]int64, error)
	// Delete removes records of kind matching filter, including their occurrences,
	// metadata and term links. It returns the number of records removed.
	Delete(ctx context.Context, kind model.EntityKind, filter model.Filter) (int64, error)
	// UpsertTerm returns the id of the term (name, taxonomy), creating it if needed.
	UpsertTerm(ctx context.Context, name, taxonomy string) (int64, error)
	// DeleteTerms removes terms of taxonomy; when slug is non-empty only that term.
	DeleteTerms(ctx context.Context, taxonomy, slug string) (int64, error)
	// ReadMetaValue returns the value of key on record id, or "" when absent.
	ReadMetaValue(ctx context.Context, id int64, key string) (string, error)
}

// RowStore is the row-level API used by the bulk occurrence writer.
type RowStore interface {
	// ReadRecordRow loads the primary row of record id.
	ReadRecordRow(ctx context.Context, id int64) (model.RecordRow, error)
	// InsertRecordRow inserts row (its ID is ignored) and returns the assigned id.
	InsertRecordRow(ctx context.Context, row model.RecordRow) (int64, error)
	// ReadMetadata loads all metadata of record id in insertion order.
	ReadMetadata(ctx context.Context, id int64) ([]model.MetaEntry, error)
	// InsertMetadata attaches entries to record id.
	InsertMetadata(ctx context.Context, id int64, entries []model.MetaEntry) error
	// ReadRelations loads the term links of record id.
	ReadRelations(ctx context.Context, id int64) ([]model.TermRelation, error)
	// InsertRelations attaches relations to record id.
	InsertRelations(ctx context.Context, id int64, relations []model.TermRelation) error
	// IncrementTermCounts adds delta to the count of each term in termIDs.
	IncrementTermCounts(ctx context.Context, termIDs []int64, delta int64) error
	// SupportsTransactions reports whether the record, metadata and relation
	// tables can be written atomically.
	SupportsTransactions(ctx context.Context) (bool, error)
}
