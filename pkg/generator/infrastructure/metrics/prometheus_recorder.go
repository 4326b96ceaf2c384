// Package metrics implements the metric recorder on Prometheus and the tracer on
// OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// PrometheusRecorder implements metrics.MetricRecorder on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchDurationSeconds *prometheus.HistogramVec
	batchCounter         *prometheus.CounterVec
	batchRecordsTaken    prometheus.Histogram
	requeueCounter       prometheus.Counter
	recordsCreated       *prometheus.CounterVec
	occurrencesCreated   *prometheus.CounterVec
	fastPathRollbacks    prometheus.Counter
}

// NewPrometheusRecorder creates a PrometheusRecorder with Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		batchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventgen_batch_duration_seconds",
			Help:    "Duration of coordinator invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		batchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgen_batches_total",
			Help: "Total coordinator invocations by status.",
		}, []string{"status"}),
		batchRecordsTaken: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventgen_batch_records_taken",
			Help:    "Records taken per coordinator invocation.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		requeueCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventgen_batch_requeues_total",
			Help: "Total continuations handed to the scheduler.",
		}),
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgen_records_created_total",
			Help: "Total records created by kind.",
		}, []string{"kind"}),
		occurrencesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgen_occurrences_created_total",
			Help: "Total recurring event occurrences written by insert path.",
		}, []string{"path"}),
		fastPathRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventgen_fast_path_rollbacks_total",
			Help: "Total rolled back bulk occurrence inserts.",
		}),
	}

	registry.MustRegister(r.batchDurationSeconds)
	registry.MustRegister(r.batchCounter)
	registry.MustRegister(r.batchRecordsTaken)
	registry.MustRegister(r.requeueCounter)
	registry.MustRegister(r.recordsCreated)
	registry.MustRegister(r.occurrencesCreated)
	registry.MustRegister(r.fastPathRollbacks)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordBatch implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordBatch(ctx context.Context, slice model.BatchSlice, requeued bool, duration time.Duration, err error) {
	s := status(err)
	r.batchCounter.WithLabelValues(s).Inc()
	r.batchDurationSeconds.WithLabelValues(s).Observe(duration.Seconds())
	r.batchRecordsTaken.Observe(float64(slice.Total()))
	if requeued {
		r.requeueCounter.Inc()
	}
	logger.Debugf("Metrics: batch took %d records in %.3fs (requeued: %t).", slice.Total(), duration.Seconds(), requeued)
}

// RecordRecordsCreated implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordRecordsCreated(ctx context.Context, kind model.EntityKind, n int) {
	if n <= 0 {
		return
	}
	r.recordsCreated.WithLabelValues(kind.String()).Add(float64(n))
}

// RecordOccurrences implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordOccurrences(ctx context.Context, path string, n int) {
	if n <= 0 {
		return
	}
	r.occurrencesCreated.WithLabelValues(path).Add(float64(n))
}

// RecordFastPathRollback implements metrics.MetricRecorder.
func (r *PrometheusRecorder) RecordFastPathRollback(ctx context.Context) {
	r.fastPathRollbacks.Inc()
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
