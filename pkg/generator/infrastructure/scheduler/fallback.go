package scheduler

import (
	"context"

	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
)

// ProbedScheduler is a scheduler that can tell whether it is usable.
type ProbedScheduler interface {
	core.Scheduler
	Available(ctx context.Context) bool
}

// FallbackScheduler uses primary when it is available and fallback otherwise.
type FallbackScheduler struct {
	primary  ProbedScheduler
	fallback core.Scheduler
}

// NewFallbackScheduler creates a FallbackScheduler.
func NewFallbackScheduler(primary ProbedScheduler, fallback core.Scheduler) *FallbackScheduler {
	return &FallbackScheduler{primary: primary, fallback: fallback}
}

// DeferOrRunNow implements scheduler.Scheduler.
func (s *FallbackScheduler) DeferOrRunNow(ctx context.Context, operation string, payload []byte) error {
	if s.primary.Available(ctx) {
		return s.primary.DeferOrRunNow(ctx, operation, payload)
	}
	return s.fallback.DeferOrRunNow(ctx, operation, payload)
}
