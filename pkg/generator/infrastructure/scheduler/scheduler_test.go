package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

const op = core.OperationHandleBatch

type recorder struct {
	mu       sync.Mutex
	payloads []string
}

func (r *recorder) handler(err error) core.Handler {
	return func(ctx context.Context, payload []byte) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.payloads = append(r.payloads, string(payload))
		return err
	}
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}

func withQueue(t *testing.T, action func(q *RedisQueue, server *miniredis.Miniredis)) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	q := NewRedisQueue(client, "eventgen:test")
	defer q.Close()
	action(q, server)
}

func TestDispatchUnknownOperation(t *testing.T) {
	err := NewDispatcher().Dispatch(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, exception.ErrScheduling)
}

func TestLocalQueueDrainsContinuationsInOrder(t *testing.T) {
	d := NewDispatcher()
	q := NewLocalQueue()
	var seen []string
	d.Register(op, func(ctx context.Context, payload []byte) error {
		seen = append(seen, string(payload))
		if string(payload) == `"a"` {
			return q.DeferOrRunNow(ctx, op, []byte(`"c"`))
		}
		return nil
	})

	require.NoError(t, q.DeferOrRunNow(context.Background(), op, []byte(`"a"`)))
	require.NoError(t, q.DeferOrRunNow(context.Background(), op, []byte(`"b"`)))

	ran, err := q.Drain(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, ran)
	assert.Equal(t, []string{`"a"`, `"b"`, `"c"`}, seen)
	assert.Zero(t, q.Pending())
}

func TestTimerSchedulerRunsAfterDelay(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	d.Register(op, rec.handler(nil))

	s := NewTimerScheduler(d, 10*time.Millisecond)
	require.NoError(t, s.DeferOrRunNow(context.Background(), op, []byte(`{"id":"x"}`)))
	assert.Empty(t, rec.seen())

	s.Wait()
	assert.Equal(t, []string{`{"id":"x"}`}, rec.seen())
}

func TestTimerSchedulerStopCancelsPending(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	d.Register(op, rec.handler(nil))

	s := NewTimerScheduler(d, time.Hour)
	require.NoError(t, s.DeferOrRunNow(context.Background(), op, []byte(`{}`)))
	s.Stop()
	s.Wait()
	assert.Empty(t, rec.seen())
}

func TestRedisQueueWorkerAcksHandledEntries(t *testing.T) {
	withQueue(t, func(q *RedisQueue, server *miniredis.Miniredis) {
		d := NewDispatcher()
		rec := &recorder{}
		d.Register(op, rec.handler(nil))

		require.NoError(t, q.DeferOrRunNow(context.Background(), op, []byte(`{"id":"1"}`)))
		require.NoError(t, q.DeferOrRunNow(context.Background(), op, []byte(`{"id":"2"}`)))
		n, err := q.Len()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		w := NewWorker(q, d, 50*time.Millisecond)
		for i := 0; i < 2; i++ {
			took, err := w.RunOnce(context.Background())
			require.NoError(t, err)
			assert.True(t, took)
		}
		took, err := w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.False(t, took)

		assert.Equal(t, []string{`{"id":"1"}`, `{"id":"2"}`}, rec.seen())
		assert.Empty(t, mustList(t, server, "eventgen:test:processing"))
	})
}

func TestRedisWorkerDoesNotRedeliverFailedEntries(t *testing.T) {
	withQueue(t, func(q *RedisQueue, server *miniredis.Miniredis) {
		d := NewDispatcher()
		rec := &recorder{}
		d.Register(op, rec.handler(exception.NewStorageWriteError("test", "locked", nil)))

		require.NoError(t, q.DeferOrRunNow(context.Background(), op, []byte(`{}`)))
		w := NewWorker(q, d, 50*time.Millisecond)
		took, err := w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, took)
		for i := 0; i < 3; i++ {
			took, err = w.RunOnce(context.Background())
			require.NoError(t, err)
			assert.False(t, took)
		}

		n, err := q.Len()
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Len(t, rec.seen(), 1)
		assert.Empty(t, mustList(t, server, "eventgen:test:processing"))
	})
}

func TestRedisWorkerDropsPermanentFailures(t *testing.T) {
	withQueue(t, func(q *RedisQueue, _ *miniredis.Miniredis) {
		d := NewDispatcher()
		rec := &recorder{}
		d.Register(op, rec.handler(exception.NewValidationError("test", "bad request", nil)))

		require.NoError(t, q.DeferOrRunNow(context.Background(), op, []byte(`{}`)))
		w := NewWorker(q, d, 50*time.Millisecond)
		took, err := w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, took)

		n, err := q.Len()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRedisQueueRecoverMovesInFlightEntries(t *testing.T) {
	withQueue(t, func(q *RedisQueue, server *miniredis.Miniredis) {
		_, err := server.Lpush("eventgen:test:processing", `{"operation":"x","payload":{}}`)
		require.NoError(t, err)

		moved, err := q.Recover()
		require.NoError(t, err)
		assert.Equal(t, 1, moved)
		n, err := q.Len()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestRedisQueueRejectsNonJSONPayload(t *testing.T) {
	withQueue(t, func(q *RedisQueue, _ *miniredis.Miniredis) {
		err := q.DeferOrRunNow(context.Background(), op, []byte("not json"))
		assert.ErrorIs(t, err, exception.ErrScheduling)
	})
}

type probed struct {
	available bool
	calls     int
}

func (p *probed) Available(context.Context) bool { return p.available }
func (p *probed) DeferOrRunNow(context.Context, string, []byte) error {
	p.calls++
	return nil
}

func TestFallbackSchedulerUsesFallbackWhenPrimaryDown(t *testing.T) {
	primary := &probed{}
	fallback := NewLocalQueue()
	s := NewFallbackScheduler(primary, fallback)

	require.NoError(t, s.DeferOrRunNow(context.Background(), op, []byte(`{}`)))
	assert.Zero(t, primary.calls)
	assert.Equal(t, 1, fallback.Pending())

	primary.available = true
	require.NoError(t, s.DeferOrRunNow(context.Background(), op, []byte(`{}`)))
	assert.Equal(t, 1, primary.calls)
}

func TestRedisQueueAvailability(t *testing.T) {
	withQueue(t, func(q *RedisQueue, server *miniredis.Miniredis) {
		assert.True(t, q.Available(context.Background()))
		server.Close()
		assert.False(t, q.Available(context.Background()))
	})
}

func TestNewSchedulersByType(t *testing.T) {
	d := NewDispatcher()
	for typ, check := range map[string]func(*Schedulers){
		config.SchedulerLocal: func(s *Schedulers) { assert.Same(t, s.Local, s.Active) },
		config.SchedulerTimer: func(s *Schedulers) { assert.Same(t, s.Timer, s.Active) },
		config.SchedulerAuto: func(s *Schedulers) {
			assert.IsType(t, &FallbackScheduler{}, s.Active)
			assert.NotNil(t, s.Redis)
		},
	} {
		cfg := config.NewConfig()
		cfg.EventGen.Scheduler.Type = typ
		s, err := NewSchedulers(cfg, d)
		require.NoError(t, err, typ)
		check(s)
		assert.NoError(t, s.Close())
	}

	cfg := config.NewConfig()
	cfg.EventGen.Scheduler.Type = "carrier-pigeon"
	_, err := NewSchedulers(cfg, d)
	assert.Error(t, err)
}

func mustList(t *testing.T, server *miniredis.Miniredis, key string) []string {
	t.Helper()
	list, err := server.List(key)
	if err != nil {
		return nil
	}
	return list
}
