package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// Schedulers holds the scheduler selected by configuration together with the
// concrete queues behind it. Unused members are nil.
type Schedulers struct {
	Active core.Scheduler
	Local  *LocalQueue
	Timer  *TimerScheduler
	Redis  *RedisQueue
}

// NewSchedulers builds the scheduler named by cfg.Scheduler.Type.
func NewSchedulers(cfg *config.Config, d *Dispatcher) (*Schedulers, error) {
	sc := cfg.EventGen.Scheduler
	delay := time.Duration(cfg.EventGen.Generator.RequeueDelaySeconds) * time.Second

	s := &Schedulers{}
	switch sc.Type {
	case config.SchedulerLocal, "":
		s.Local = NewLocalQueue()
		s.Active = s.Local
	case config.SchedulerTimer:
		s.Timer = NewTimerScheduler(d, delay)
		s.Active = s.Timer
	case config.SchedulerRedis:
		s.Redis = NewRedisQueue(NewRedisClient(sc.Redis), sc.Redis.QueueKey)
		s.Active = s.Redis
	case config.SchedulerAuto:
		s.Redis = NewRedisQueue(NewRedisClient(sc.Redis), sc.Redis.QueueKey)
		s.Timer = NewTimerScheduler(d, delay)
		s.Active = NewFallbackScheduler(s.Redis, s.Timer)
	default:
		return nil, fmt.Errorf("unknown scheduler type '%s'", sc.Type)
	}
	logger.Debugf("Using '%s' scheduler.", sc.Type)
	return s, nil
}

// Settle runs or waits for the continuations that live in this process: it
// drains the local queue and waits for pending timers. Redis entries are left
// to workers.
func (s *Schedulers) Settle(ctx context.Context, d *Dispatcher) (int, error) {
	ran := 0
	if s.Local != nil {
		n, err := s.Local.Drain(ctx, d)
		ran += n
		if err != nil {
			return ran, err
		}
	}
	if s.Timer != nil {
		s.Timer.Wait()
	}
	return ran, nil
}

// Close stops timers and closes the Redis client.
func (s *Schedulers) Close() error {
	if s.Timer != nil {
		s.Timer.Stop()
	}
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}

// Module provides the dispatcher, the configured scheduler and its registry.
var Module = fx.Options(
	fx.Provide(NewDispatcher),
	fx.Provide(func(d *Dispatcher) core.Registry { return d }),
	fx.Provide(NewSchedulers),
	fx.Provide(func(s *Schedulers) core.Scheduler { return s.Active }),
	fx.Invoke(func(lc fx.Lifecycle, s *Schedulers) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return s.Close() }})
	}),
)
