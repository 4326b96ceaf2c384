// Package coordinator slices generation requests under a per-invocation ceiling
// and hands the remainder to a scheduler.
//
// A GenerationRequest asks for a quantity of organizers, venues, events and
// uploads. One invocation of Process creates at most Ceiling records. Kinds are
// visited in that fixed order and each takes what is left of the ceiling, so a
// request of 60 venues and 30 events under a ceiling of 50 runs as 50 venues,
// then 10 venues and 30 events.
//
// When the ceiling is reached with work left, the remaining request is encoded
// and deferred through the configured scheduler as scheduler.OperationHandleBatch.
// Handle is the registered handler that decodes it and runs the next slice.
// A request that fits in one invocation is never deferred.
//
// A creator failure ends the invocation. The error is returned with a result
// that counts the kinds already completed and reports whether anything was
// created. Nothing is re-queued.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/component/creator"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// DefaultCeiling is the number of records one invocation creates at most.
const DefaultCeiling = 50

// BatchCoordinator runs one slice of a GenerationRequest per invocation.
type BatchCoordinator struct {
	creators  creator.Set
	scheduler scheduler.Scheduler
	ceiling   int
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
}

// NewBatchCoordinator creates a BatchCoordinator. Every kind needs a creator
// and the ceiling must be positive.
func NewBatchCoordinator(creators creator.Set, sched scheduler.Scheduler, ceiling int, recorder metrics.MetricRecorder, tracer metrics.Tracer) (*BatchCoordinator, error) {
	if ceiling <= 0 {
		return nil, exception.NewValidationError("coordinator", fmt.Sprintf("batch ceiling must be positive, got %d", ceiling), nil)
	}
	for _, kind := range model.Kinds() {
		if _, ok := creators[kind]; !ok {
			return nil, fmt.Errorf("no creator registered for %s", kind)
		}
	}
	return &BatchCoordinator{creators: creators, scheduler: sched, ceiling: ceiling, recorder: recorder, tracer: tracer}, nil
}

// Ceiling returns the per-invocation ceiling.
func (c *BatchCoordinator) Ceiling() int { return c.ceiling }

// Process creates up to the ceiling's worth of records, visiting kinds in
// order, and schedules a continuation when the ceiling was reached with work
// left. A creator failure ends the invocation with that error; the returned
// result still reflects the kinds completed before it.
func (c *BatchCoordinator) Process(ctx context.Context, req *model.GenerationRequest) (result model.BatchResult, err error) {
	if err := req.Validate(); err != nil {
		return model.BatchResult{Remaining: req.Clone()}, err
	}

	started := time.Now()
	ctx, end := c.tracer.StartSpan(ctx, "batch.process", map[string]interface{}{
		"request_id": req.ID,
		"remaining":  req.Total(),
		"ceiling":    c.ceiling,
	})
	defer end()
	defer func() {
		c.recorder.RecordBatch(ctx, result.Slice, result.Requeued, time.Since(started), err)
		if err != nil {
			c.tracer.RecordError(ctx, "coordinator", err)
		}
	}()

	remaining := req.Clone()
	result.Remaining = remaining
	taken := 0
	for _, kind := range model.Kinds() {
		take := remaining.Remaining(kind)
		if room := c.ceiling - taken; take > room {
			take = room
		}
		if take <= 0 {
			continue
		}
		ids, err := c.creators[kind].Create(ctx, take, remaining.Get(kind))
		if err != nil {
			if len(ids) > 0 {
				result.Created = true
			}
			logger.Errorf("Request %s: creating %d %s failed after %d: %v", req.ID, take, kind, len(ids), err)
			return result, err
		}
		remaining.Decrement(kind, take)
		result.Slice.Take(kind, take)
		result.Created = true
		taken += take
	}

	if taken >= c.ceiling && !remaining.IsEmpty() {
		if err := c.requeue(ctx, remaining); err != nil {
			return result, err
		}
		result.Requeued = true
	}

	logger.WithFields(logger.Fields{
		"request_id": req.ID,
		"taken":      taken,
		"remaining":  remaining.Total(),
		"requeued":   result.Requeued,
	}).Infof("Batch processed: %s.", describe(result.Slice))
	return result, nil
}

func (c *BatchCoordinator) requeue(ctx context.Context, remaining *model.GenerationRequest) error {
	const op = "BatchCoordinator.requeue"
	payload, err := json.Marshal(remaining)
	if err != nil {
		return exception.NewSchedulingError(op, "failed to encode continuation", err)
	}
	if err := c.scheduler.DeferOrRunNow(ctx, scheduler.OperationHandleBatch, payload); err != nil {
		if exception.KindOf(err) == exception.KindScheduling {
			return err
		}
		return exception.NewSchedulingError(op, fmt.Sprintf("failed to schedule continuation of request %s", remaining.ID), err)
	}
	return nil
}

// Handle decodes a continuation payload and processes it.
func (c *BatchCoordinator) Handle(ctx context.Context, payload []byte) error {
	var req model.GenerationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		if exception.KindOf(err) == exception.KindValidation {
			return err
		}
		return exception.NewValidationError("BatchCoordinator.Handle", "malformed continuation payload", err)
	}
	_, err := c.Process(ctx, &req)
	return err
}

func describe(s model.BatchSlice) string {
	out := ""
	for _, kind := range model.Kinds() {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", s.Taken(kind), kind)
	}
	return out
}

// Params are the fx inputs of New.
type Params struct {
	fx.In
	Config    *config.GeneratorConfig
	Creators  []creator.Creator `group:"creators"`
	Scheduler scheduler.Scheduler
	Registry  scheduler.Registry
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
}

// New builds the coordinator from configuration and registers Handle for
// continuations.
func New(p Params) (*BatchCoordinator, error) {
	set, err := creator.NewSet(p.Creators...)
	if err != nil {
		return nil, err
	}
	ceiling := p.Config.BatchCeiling
	if ceiling == 0 {
		ceiling = DefaultCeiling
	}
	c, err := NewBatchCoordinator(set, p.Scheduler, ceiling, p.Recorder, p.Tracer)
	if err != nil {
		return nil, err
	}
	p.Registry.Register(scheduler.OperationHandleBatch, c.Handle)
	return c, nil
}

// Module provides the BatchCoordinator.
var Module = fx.Provide(New)
