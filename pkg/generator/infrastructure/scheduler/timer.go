package scheduler

import (
	"context"
	"sync"
	"time"

	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// TimerScheduler runs each invocation once after a fixed delay in the current process.
type TimerScheduler struct {
	dispatcher *Dispatcher
	delay      time.Duration
	wg         sync.WaitGroup
	mu         sync.Mutex
	timers     []*time.Timer
}

// NewTimerScheduler creates a TimerScheduler.
func NewTimerScheduler(d *Dispatcher, delay time.Duration) *TimerScheduler {
	return &TimerScheduler{dispatcher: d, delay: delay}
}

// DeferOrRunNow implements scheduler.Scheduler. The invocation runs detached
// from ctx; failures are logged.
func (s *TimerScheduler) DeferOrRunNow(ctx context.Context, operation string, payload []byte) error {
	payload = append([]byte(nil), payload...)
	s.wg.Add(1)
	timer := time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		if err := s.dispatcher.Dispatch(context.Background(), operation, payload); err != nil {
			logger.Errorf("Timed invocation of '%s' failed: %v", operation, err)
		}
	})
	s.mu.Lock()
	s.timers = append(s.timers, timer)
	s.mu.Unlock()
	logger.Debugf("Scheduled '%s' in %s.", operation, s.delay)
	return nil
}

// Wait blocks until every scheduled invocation, including those scheduled
// while waiting, has run or been stopped.
func (s *TimerScheduler) Wait() {
	s.wg.Wait()
}

// Stop cancels invocations that have not started yet.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
	}
	s.timers = nil
}

var _ core.Scheduler = (*TimerScheduler)(nil)
