package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

// NoOpMetricRecorder discards all metrics.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a NoOpMetricRecorder.
func NewNoOpMetricRecorder() *NoOpMetricRecorder { return &NoOpMetricRecorder{} }

func (r *NoOpMetricRecorder) RecordBatch(context.Context, model.BatchSlice, bool, time.Duration, error) {
}
func (r *NoOpMetricRecorder) RecordRecordsCreated(context.Context, model.EntityKind, int) {}
func (r *NoOpMetricRecorder) RecordOccurrences(context.Context, string, int)            {}
func (r *NoOpMetricRecorder) RecordFastPathRollback(context.Context)                    {}

// NoOpTracer creates no spans.
type NoOpTracer struct{}

// NewNoOpTracer creates a NoOpTracer.
func NewNoOpTracer() *NoOpTracer { return &NoOpTracer{} }

func (t *NoOpTracer) StartSpan(ctx context.Context, _ string, _ map[string]interface{}) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) RecordError(context.Context, string, error)                     {}
func (t *NoOpTracer) RecordEvent(context.Context, string, map[string]interface{}) {}

var (
	_ MetricRecorder = (*NoOpMetricRecorder)(nil)
	_ Tracer         = (*NoOpTracer)(nil)
)
