package boardsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type call struct {
	kind      string
	order     task.LaneOrder
	moved     string
	newStatus task.Status
}

type fakePersister struct {
	mu    sync.Mutex
	calls []call
	err   error
	block chan struct{}
	panic bool
}

func (f *fakePersister) record(ctx context.Context, c call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	err, block, p := f.err, f.block, f.panic
	f.mu.Unlock()
	if p {
		panic("transport exploded")
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakePersister) SetLaneOrder(ctx context.Context, order task.LaneOrder) error {
	return f.record(ctx, call{kind: "order", order: order})
}

func (f *fakePersister) SetLaneOrderAndStatus(ctx context.Context, order task.LaneOrder, moved string, s task.Status) error {
	return f.record(ctx, call{kind: "order+status", order: order, moved: moved, newStatus: s})
}

func (f *fakePersister) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func sameLane() board.Change {
	b := board.Board{Todo: []string{"A", "B", "C"}}
	_, change, _ := board.Reorder(b, board.Move(board.LaneTodo, 0, board.LaneTodo, 2))
	return *change
}

func crossLane() board.Change {
	b := board.Board{Todo: []string{"A", "B"}, InProgress: []string{"C"}}
	_, change, _ := board.Reorder(b, board.Move(board.LaneTodo, 0, board.LaneInProgress, 1))
	return *change
}

func TestApply_SameLane(t *testing.T) {
	repo := &fakePersister{}
	bus := eventbus.New()
	_, events := bus.Subscribe(4)
	c := New(repo, bus)
	defer c.Close()

	err := <-c.Apply(context.Background(), sameLane())
	require.NoError(t, err)

	calls := repo.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "order", calls[0].kind)
	assert.Equal(t, task.StatusTodo, calls[0].order.Status)
	assert.Equal(t, []string{"B", "C", "A"}, calls[0].order.TaskIDs)
	assert.NotEmpty(t, calls[0].order.Revision)

	n := <-events
	assert.Equal(t, eventbus.KindPersistSucceeded, n.Kind)
	assert.Equal(t, "A", n.ResourceID)
}

func TestApply_CrossLane(t *testing.T) {
	repo := &fakePersister{}
	c := New(repo, nil)
	defer c.Close()

	require.NoError(t, <-c.Apply(context.Background(), crossLane()))

	calls := repo.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "order+status", calls[0].kind)
	assert.Equal(t, task.StatusInProgress, calls[0].order.Status)
	assert.Equal(t, []string{"C", "A"}, calls[0].order.TaskIDs)
	assert.Equal(t, "A", calls[0].moved)
	assert.Equal(t, task.StatusInProgress, calls[0].newStatus)
}

func TestApply_ChannelClosedAfterOneValue(t *testing.T) {
	c := New(&fakePersister{}, nil)
	ch := c.Apply(context.Background(), sameLane())
	c.Close()

	err, ok := <-ch
	assert.True(t, ok)
	assert.NoError(t, err)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestApply_Failure(t *testing.T) {
	repo := &fakePersister{err: connect.NewError(connect.CodeUnavailable, errors.New("backend down"))}
	bus := eventbus.New()
	_, events := bus.Subscribe(4)
	c := New(repo, bus)
	defer c.Close()

	change := sameLane()
	err := <-c.Apply(context.Background(), change)
	require.Error(t, err)

	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, change.Order, perr.Change.Order)
	assert.NotEmpty(t, perr.Revision)
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))
	assert.Len(t, repo.Calls(), 1, "failures are never retried")

	n := <-events
	assert.True(t, n.Failed())
	assert.Equal(t, "A", n.ResourceID)
	assert.Equal(t, "todo", n.Metadata["lane"])
}

func TestApply_TimeoutIsFailure(t *testing.T) {
	repo := &fakePersister{block: make(chan struct{})}
	c := New(repo, nil, WithTimeout(20*time.Millisecond))
	defer c.Close()

	err := <-c.Apply(context.Background(), crossLane())
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.DeadlineExceeded))
}

func TestApply_CallerCancelDoesNotCancelCall(t *testing.T) {
	block := make(chan struct{})
	repo := &fakePersister{block: block}
	c := New(repo, nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Apply(ctx, sameLane())
	cancel()
	close(block)

	assert.NoError(t, <-ch)
}

func TestApply_PanicIsFailure(t *testing.T) {
	c := New(&fakePersister{panic: true}, nil)
	defer c.Close()

	err := <-c.Apply(context.Background(), sameLane())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport exploded")
}

func TestApply_DoesNotWaitForEarlierCalls(t *testing.T) {
	block := make(chan struct{})
	repo := &fakePersister{block: block}
	c := New(repo, nil)

	first := c.Apply(context.Background(), sameLane())
	second := c.Apply(context.Background(), crossLane())

	assert.Eventually(t, func() bool { return len(repo.Calls()) == 2 }, time.Second, 5*time.Millisecond)
	close(block)
	assert.NoError(t, <-first)
	assert.NoError(t, <-second)
	c.Close()
}

func TestApply_CallsStartInApplyOrder(t *testing.T) {
	for round := range 20 {
		repo := &fakePersister{}
		c := New(repo, nil)

		want := make([]string, 50)
		chans := make([]<-chan error, 50)
		for i := range want {
			want[i] = fmt.Sprintf("t%02d", i)
			change := board.Change{Lane: board.LaneTodo, Order: []string{want[i]}, MovedTaskID: want[i]}
			if i%3 == 0 {
				change.Lane = board.LaneInProgress
				change.NewStatus = task.StatusInProgress
			}
			chans[i] = c.Apply(context.Background(), change)
		}
		for _, ch := range chans {
			require.NoError(t, <-ch)
		}
		c.Close()

		var got []string
		var revisions []string
		for _, call := range repo.Calls() {
			got = append(got, call.order.TaskIDs[0])
			revisions = append(revisions, call.order.Revision)
		}
		require.Equal(t, want, got, "round %d", round)
		assert.IsIncreasing(t, revisions, "round %d", round)
	}
}

func TestApply_PanicDoesNotHoldBackLaterCalls(t *testing.T) {
	repo := &fakePersister{panic: true}
	c := New(repo, nil)
	defer c.Close()

	first := c.Apply(context.Background(), sameLane())
	require.Error(t, <-first)

	repo.mu.Lock()
	repo.panic = false
	repo.mu.Unlock()
	assert.NoError(t, <-c.Apply(context.Background(), crossLane()))
	assert.Len(t, repo.Calls(), 2)
}

func TestRevisionsIncrease(t *testing.T) {
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := New(&fakePersister{}, nil, WithClock(func() time.Time { return fixed }))

	prev, _ := c.take()
	for range 100 {
		next, _ := c.take()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestApply_EveryCallHasItsOwnRevision(t *testing.T) {
	repo := &fakePersister{}
	c := New(repo, nil)

	var chans []<-chan error
	for range 20 {
		chans = append(chans, c.Apply(context.Background(), sameLane()))
	}
	for _, ch := range chans {
		require.NoError(t, <-ch)
	}
	c.Close()

	revisions := map[string]bool{}
	for _, call := range repo.Calls() {
		revisions[call.order.Revision] = true
	}
	assert.Len(t, revisions, 20)
}
