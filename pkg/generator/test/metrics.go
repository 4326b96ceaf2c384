package test

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
)

// MetricsSpy is a metrics.MetricRecorder that keeps what it is told.
type MetricsSpy struct {
	mu          sync.Mutex
	Batches     []model.BatchSlice
	Requeues    int
	Created     map[model.EntityKind]int
	Occurrences map[string]int
	Rollbacks   int
}

// NewMetricsSpy returns an empty MetricsSpy.
func NewMetricsSpy() *MetricsSpy {
	return &MetricsSpy{Created: map[model.EntityKind]int{}, Occurrences: map[string]int{}}
}

// RecordBatch implements metrics.MetricRecorder.
func (s *MetricsSpy) RecordBatch(_ context.Context, slice model.BatchSlice, requeued bool, _ time.Duration, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Batches = append(s.Batches, slice)
	if requeued {
		s.Requeues++
	}
}

// RecordRecordsCreated implements metrics.MetricRecorder.
func (s *MetricsSpy) RecordRecordsCreated(_ context.Context, kind model.EntityKind, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Created[kind] += n
}

// RecordOccurrences implements metrics.MetricRecorder.
func (s *MetricsSpy) RecordOccurrences(_ context.Context, path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Occurrences[path] += n
}

// RecordFastPathRollback implements metrics.MetricRecorder.
func (s *MetricsSpy) RecordFastPathRollback(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rollbacks++
}

var _ metrics.MetricRecorder = (*MetricsSpy)(nil)
