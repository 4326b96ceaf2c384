package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/component/content"
	"github.com/tigerroll/eventgen/pkg/generator/component/creator"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/engine/occurrence"
	"github.com/tigerroll/eventgen/pkg/generator/infrastructure/repository/inmemory"
	infrasched "github.com/tigerroll/eventgen/pkg/generator/infrastructure/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/test"
)

type call struct {
	kind model.EntityKind
	n    int
}

// journal records creator calls across kinds in order.
type journal struct {
	mu    sync.Mutex
	calls []call
}

func (j *journal) add(kind model.EntityKind, n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call{kind, n})
}

type fakeCreator struct {
	kind    model.EntityKind
	journal *journal
	err     error
	partial int
}

func (f *fakeCreator) Kind() model.EntityKind { return f.kind }

func (f *fakeCreator) Create(_ context.Context, n int, _ model.EntityQuantity) ([]int64, error) {
	if f.err != nil {
		return make([]int64, f.partial), f.err
	}
	f.journal.add(f.kind, n)
	return make([]int64, n), nil
}

func fakeSet(j *journal, failing map[model.EntityKind]error) creator.Set {
	set := creator.Set{}
	for _, kind := range model.Kinds() {
		set[kind] = &fakeCreator{kind: kind, journal: j, err: failing[kind]}
	}
	return set
}

func request(counts map[model.EntityKind]int) *model.GenerationRequest {
	req := model.NewGenerationRequest()
	for kind, n := range counts {
		req.Set(kind, model.EntityQuantity{Quantity: n})
	}
	return req
}

func newCoordinator(t *testing.T, set creator.Set, sched scheduler.Scheduler, ceiling int) (*BatchCoordinator, *test.MetricsSpy) {
	t.Helper()
	spy := test.NewMetricsSpy()
	c, err := NewBatchCoordinator(set, sched, ceiling, spy, metrics.NewNoOpTracer())
	require.NoError(t, err)
	return c, spy
}

func TestSmallRequestRunsInOneInvocation(t *testing.T) {
	j := &journal{}
	sched := &test.RecordingScheduler{}
	c, spy := newCoordinator(t, fakeSet(j, nil), sched, 50)

	req := request(map[model.EntityKind]int{model.KindOrganizer: 3, model.KindVenue: 2, model.KindEvent: 4})
	result, err := c.Process(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Requeued)
	assert.Equal(t, 9, result.Slice.Total())
	assert.True(t, result.Remaining.IsEmpty())
	assert.Equal(t, 9, req.Total(), "the input request is not modified")
	assert.Empty(t, sched.Calls())
	assert.Equal(t, []call{{model.KindOrganizer, 3}, {model.KindVenue, 2}, {model.KindEvent, 4}}, j.calls)
	assert.Len(t, spy.Batches, 1)
}

// runToCompletion feeds every scheduled continuation back into the
// coordinator and returns the slice of each invocation.
func runToCompletion(t *testing.T, c *BatchCoordinator, sched *test.RecordingScheduler, req *model.GenerationRequest) []model.BatchSlice {
	t.Helper()
	var slices []model.BatchSlice
	result, err := c.Process(context.Background(), req)
	require.NoError(t, err)
	slices = append(slices, result.Slice)
	for seen := 1; len(sched.Calls()) >= seen; seen++ {
		next := sched.Calls()[seen-1]
		require.Equal(t, scheduler.OperationHandleBatch, next.Operation)
		var cont model.GenerationRequest
		require.NoError(t, json.Unmarshal(next.Payload, &cont))
		assert.Equal(t, req.ID, cont.ID)
		result, err := c.Process(context.Background(), &cont)
		require.NoError(t, err)
		slices = append(slices, result.Slice)
		require.Less(t, len(slices), 100)
	}
	return slices
}

func TestLargeRequestIsSlicedUnderTheCeiling(t *testing.T) {
	j := &journal{}
	sched := &test.RecordingScheduler{}
	c, _ := newCoordinator(t, fakeSet(j, nil), sched, 50)
	counts := map[model.EntityKind]int{model.KindVenue: 30, model.KindEvent: 70, model.KindUpload: 25}

	slices := runToCompletion(t, c, sched, request(counts))

	require.Len(t, slices, 3)
	sums := map[model.EntityKind]int{}
	for _, s := range slices {
		assert.LessOrEqual(t, s.Total(), 50)
		for _, kind := range model.Kinds() {
			sums[kind] += s.Taken(kind)
		}
	}
	assert.Equal(t, 30, sums[model.KindVenue])
	assert.Equal(t, 70, sums[model.KindEvent])
	assert.Equal(t, 25, sums[model.KindUpload])
	assert.Zero(t, sums[model.KindOrganizer])
	assert.Equal(t, []int{50, 50, 25}, []int{slices[0].Total(), slices[1].Total(), slices[2].Total()})
}

func TestCeilingOfOneVisitsKindsInOrder(t *testing.T) {
	j := &journal{}
	sched := &test.RecordingScheduler{}
	c, _ := newCoordinator(t, fakeSet(j, nil), sched, 1)

	slices := runToCompletion(t, c, sched, request(map[model.EntityKind]int{model.KindVenue: 1, model.KindEvent: 1}))

	require.Len(t, slices, 2)
	assert.Equal(t, []call{{model.KindVenue, 1}, {model.KindEvent, 1}}, j.calls)
	assert.Len(t, sched.Calls(), 1)
}

func TestExactCeilingWithNothingLeftIsNotRequeued(t *testing.T) {
	sched := &test.RecordingScheduler{}
	c, _ := newCoordinator(t, fakeSet(&journal{}, nil), sched, 5)

	result, err := c.Process(context.Background(), request(map[model.EntityKind]int{model.KindVenue: 5}))
	require.NoError(t, err)
	assert.False(t, result.Requeued)
	assert.Empty(t, sched.Calls())
}

func TestCreatorFailureKeepsEarlierKindsAndDoesNotRequeue(t *testing.T) {
	j := &journal{}
	sched := &test.RecordingScheduler{}
	failure := exception.NewStorageWriteError("test", "disk full", nil)
	c, spy := newCoordinator(t, fakeSet(j, map[model.EntityKind]error{model.KindEvent: failure}), sched, 50)

	req := request(map[model.EntityKind]int{model.KindVenue: 2, model.KindEvent: 3, model.KindUpload: 4})
	result, err := c.Process(context.Background(), req)

	assert.ErrorIs(t, err, exception.ErrStorageWrite)
	assert.True(t, result.Created)
	assert.Zero(t, result.Remaining.Remaining(model.KindVenue))
	assert.Equal(t, 3, result.Remaining.Remaining(model.KindEvent))
	assert.Equal(t, 4, result.Remaining.Remaining(model.KindUpload))
	assert.Empty(t, sched.Calls())
	assert.Len(t, spy.Batches, 1)
}

func TestPartialFirstKindFailureStillReportsCreated(t *testing.T) {
	j := &journal{}
	sched := &test.RecordingScheduler{}
	set := fakeSet(j, nil)
	set[model.KindOrganizer] = &fakeCreator{
		kind:    model.KindOrganizer,
		journal: j,
		err:     exception.NewStorageWriteError("test", "disk full", nil),
		partial: 2,
	}
	c, _ := newCoordinator(t, set, sched, 50)

	result, err := c.Process(context.Background(), request(map[model.EntityKind]int{model.KindOrganizer: 5}))

	assert.ErrorIs(t, err, exception.ErrStorageWrite)
	assert.True(t, result.Created)
	assert.Equal(t, 5, result.Remaining.Remaining(model.KindOrganizer))
	assert.Empty(t, sched.Calls())
}

func TestFirstKindFailureWithNothingCreated(t *testing.T) {
	j := &journal{}
	failure := exception.NewStorageWriteError("test", "disk full", nil)
	c, _ := newCoordinator(t, fakeSet(j, map[model.EntityKind]error{model.KindOrganizer: failure}), &test.RecordingScheduler{}, 50)

	result, err := c.Process(context.Background(), request(map[model.EntityKind]int{model.KindOrganizer: 5}))

	assert.Error(t, err)
	assert.False(t, result.Created)
}

func TestFailedSliceFromQueueIsNotReplayed(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	queue := infrasched.NewRedisQueue(redis.NewClient(&redis.Options{Addr: server.Addr()}), "eventgen:test")
	defer queue.Close()

	j := &journal{}
	failure := exception.NewStorageWriteError("test", "disk full", nil)
	dispatcher := infrasched.NewDispatcher()
	c, _ := newCoordinator(t, fakeSet(j, map[model.EntityKind]error{model.KindEvent: failure}), queue, 50)
	dispatcher.Register(scheduler.OperationHandleBatch, c.Handle)

	payload, err := json.Marshal(request(map[model.EntityKind]int{model.KindVenue: 1, model.KindEvent: 1}))
	require.NoError(t, err)
	require.NoError(t, queue.DeferOrRunNow(context.Background(), scheduler.OperationHandleBatch, payload))

	worker := infrasched.NewWorker(queue, dispatcher, 20*time.Millisecond)
	for i := 0; i < 5; i++ {
		_, err := worker.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []call{{model.KindVenue, 1}}, j.calls, "venues are created once")
	n, err := queue.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvalidRequestHasNoSideEffects(t *testing.T) {
	j := &journal{}
	sched := &test.RecordingScheduler{}
	c, spy := newCoordinator(t, fakeSet(j, nil), sched, 50)

	req := request(map[model.EntityKind]int{model.KindVenue: -1})
	_, err := c.Process(context.Background(), req)

	assert.ErrorIs(t, err, exception.ErrValidation)
	assert.Empty(t, j.calls)
	assert.Empty(t, spy.Batches)
}

func TestSchedulerFailureIsSchedulingError(t *testing.T) {
	sched := &test.RecordingScheduler{Err: errors.New("connection refused")}
	c, _ := newCoordinator(t, fakeSet(&journal{}, nil), sched, 10)

	result, err := c.Process(context.Background(), request(map[model.EntityKind]int{model.KindOrganizer: 15}))

	assert.ErrorIs(t, err, exception.ErrScheduling)
	assert.False(t, result.Requeued)
	assert.Equal(t, 5, result.Remaining.Remaining(model.KindOrganizer))
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	c, _ := newCoordinator(t, fakeSet(&journal{}, nil), &test.RecordingScheduler{}, 10)
	assert.ErrorIs(t, c.Handle(context.Background(), []byte(`{"venues": 3`)), exception.ErrValidation)
	assert.ErrorIs(t, c.Handle(context.Background(), []byte(`{"stages": {"quantity": 1}}`)), exception.ErrValidation)
}

func TestConstructorChecks(t *testing.T) {
	_, err := NewBatchCoordinator(fakeSet(&journal{}, nil), &test.RecordingScheduler{}, 0, test.NewMetricsSpy(), metrics.NewNoOpTracer())
	assert.ErrorIs(t, err, exception.ErrValidation)

	partial := creator.Set{model.KindVenue: &fakeCreator{kind: model.KindVenue}}
	_, err = NewBatchCoordinator(partial, &test.RecordingScheduler{}, 10, test.NewMetricsSpy(), metrics.NewNoOpTracer())
	assert.Error(t, err)
}

func TestNewRegistersContinuationHandler(t *testing.T) {
	j := &journal{}
	dispatcher := infrasched.NewDispatcher()
	queue := infrasched.NewLocalQueue()
	var creators []creator.Creator
	for _, c := range fakeSet(j, nil) {
		creators = append(creators, c)
	}

	c, err := New(Params{
		Config:    &config.GeneratorConfig{BatchCeiling: 4},
		Creators:  creators,
		Scheduler: queue,
		Registry:  dispatcher,
		Recorder:  test.NewMetricsSpy(),
		Tracer:    metrics.NewNoOpTracer(),
	})
	require.NoError(t, err)

	_, err = c.Process(context.Background(), request(map[model.EntityKind]int{model.KindOrganizer: 10}))
	require.NoError(t, err)
	ran, err := queue.Drain(context.Background(), dispatcher)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
	assert.Equal(t, []call{{model.KindOrganizer, 4}, {model.KindOrganizer, 4}, {model.KindOrganizer, 2}}, j.calls)
}

func TestWeeklyRecurringEventsEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	spy := test.NewMetricsSpy()
	tracer := metrics.NewNoOpTracer()
	provider := content.NewProvider(rand.New(rand.NewSource(42)))
	cache := creator.NewCandidateCache(store)
	events := creator.NewEventCreator(creator.EventCreatorParams{
		Config:   &config.GeneratorConfig{DefaultTimezone: "America/New_York"},
		Repo:     store,
		Store:    store,
		TM:       store,
		Fast:     occurrence.NewFastOccurrenceInserter(store, store, spy, tracer),
		RowByRow: occurrence.NewRowByRowInserter(store, store, spy),
		Provider: provider,
		Cache:    cache,
		Recorder: spy,
		Tracer:   tracer,
	})
	set, err := creator.NewSet(
		creator.NewOrganizerCreator(store, provider, cache, spy),
		creator.NewVenueCreator(store, provider, cache, spy),
		events,
		&fakeCreator{kind: model.KindUpload, journal: &journal{}},
	)
	require.NoError(t, err)

	dispatcher := infrasched.NewDispatcher()
	queue := infrasched.NewLocalQueue()
	c, err := NewBatchCoordinator(set, queue, 50, spy, tracer)
	require.NoError(t, err)
	dispatcher.Register(scheduler.OperationHandleBatch, c.Handle)

	req := model.NewGenerationRequest().Set(model.KindEvent, model.EntityQuantity{
		Quantity:              120,
		Recurring:             true,
		RecurringType:         model.RecurrenceWeekly,
		FastOccurrencesInsert: true,
	})
	_, err = c.Process(ctx, req)
	require.NoError(t, err)
	_, err = queue.Drain(ctx, dispatcher)
	require.NoError(t, err)

	require.Len(t, spy.Batches, 3)
	assert.Equal(t, 50, spy.Batches[0].Taken(model.KindEvent))
	assert.Equal(t, 50, spy.Batches[1].Taken(model.KindEvent))
	assert.Equal(t, 20, spy.Batches[2].Taken(model.KindEvent))

	parents, err := store.ListIDs(ctx, model.KindEvent, model.Filter{TopLevelOnly: true})
	require.NoError(t, err)
	require.Len(t, parents, 120)
	assert.Equal(t, 120*7, spy.Occurrences[metrics.PathFast])

	for _, parent := range parents[:10] {
		meta, err := store.ReadMetadata(ctx, parent)
		require.NoError(t, err)
		zone, _ := model.FindMeta(meta, model.MetaEventTimezone)
		loc, err := time.LoadLocation(zone)
		require.NoError(t, err)
		first := localStart(t, meta, loc)

		children := store.Children(parent)
		require.Len(t, children, 7)
		for i, child := range children {
			childMeta, err := store.ReadMetadata(ctx, child)
			require.NoError(t, err)
			want := first.AddDate(0, 0, 7*(i+1)).Format(model.DateTimeLayout)
			assert.Equal(t, want, localStart(t, childMeta, loc).Format(model.DateTimeLayout))
		}
	}
}

func localStart(t *testing.T, meta []model.MetaEntry, loc *time.Location) time.Time {
	t.Helper()
	v, ok := model.FindMeta(meta, model.MetaEventStartDate)
	require.True(t, ok)
	start, err := time.ParseInLocation(model.DateTimeLayout, v, loc)
	require.NoError(t, err)
	return start
}
