package test

import (
	"context"
	"sync"
)

// ScheduledCall is one call seen by RecordingScheduler.
type ScheduledCall struct {
	Operation string
	Payload   []byte
}

// RecordingScheduler records every DeferOrRunNow call and returns Err.
type RecordingScheduler struct {
	mu    sync.Mutex
	calls []ScheduledCall
	Err   error
}

// DeferOrRunNow implements scheduler.Scheduler.
func (s *RecordingScheduler) DeferOrRunNow(_ context.Context, operation string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ScheduledCall{Operation: operation, Payload: append([]byte(nil), payload...)})
	return s.Err
}

// Calls returns a copy of the recorded calls.
func (s *RecordingScheduler) Calls() []ScheduledCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScheduledCall(nil), s.calls...)
}
