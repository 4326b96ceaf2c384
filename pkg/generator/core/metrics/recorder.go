// Package metrics defines the metric and tracing abstractions used by the
// coordinator and the occurrence writers.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

// Occurrence insert paths, used as metric label values.
const (
	PathFast     = "fast"
	PathRowByRow = "row_by_row"
)

// MetricRecorder records generator metrics.
type MetricRecorder interface {
	// RecordBatch records one coordinator invocation and what it took.
	RecordBatch(ctx context.Context, slice model.BatchSlice, requeued bool, duration time.Duration, err error)
	// RecordRecordsCreated records n records of kind created.
	RecordRecordsCreated(ctx context.Context, kind model.EntityKind, n int)
	// RecordOccurrences records n occurrences written through path.
	RecordOccurrences(ctx context.Context, path string, n int)
	// RecordFastPathRollback records a rolled back bulk insert.
	RecordFastPathRollback(ctx context.Context)
}

// Tracer opens spans around generator operations.
type Tracer interface {
	// StartSpan starts a span named name. The returned function ends it.
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())
	// RecordError records err on the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds an event to the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
