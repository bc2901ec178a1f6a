// Package remotetest provides an in-memory task service for tests.
package remotetest

import (
	"context"
	"crypto/rand"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskboard/internal/filter"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

const (
	OpListTasks             = "ListTasks"
	OpCreateTask            = "CreateTask"
	OpUpdateTask            = "UpdateTask"
	OpDeleteTask            = "DeleteTask"
	OpSetLaneOrder          = "SetLaneOrder"
	OpSetLaneOrderAndStatus = "SetLaneOrderAndStatus"
)

// Call records one request the backend received.
type Call struct {
	Op        string
	TaskID    string
	Order     task.LaneOrder
	NewStatus task.Status
}

// Backend stores tasks in one global order. A lane order is applied only when
// its revision is newer than the last one stored for that lane.
type Backend struct {
	mu        sync.Mutex
	tasks     []task.Task
	revisions map[task.Status]string
	failures  map[string][]error
	latency   time.Duration
	calls     []Call
	now       func() time.Time
	entropy   *ulid.MonotonicEntropy
}

var _ task.Repository = (*Backend)(nil)

func NewBackend(seed ...task.Task) *Backend {
	tasks := make([]task.Task, len(seed))
	for i, t := range seed {
		tasks[i] = t.Clone()
	}
	return &Backend{
		tasks:     tasks,
		revisions: make(map[task.Status]string),
		failures:  make(map[string][]error),
		now:       time.Now,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// FailNext makes the next call of op return err. Calls queue up.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = append(b.failures[op], err)
}

// SetLatency delays every call by d, or until the call's context ends.
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// Snapshot returns the stored tasks in their global order.
func (b *Backend) Snapshot() []task.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]task.Task, len(b.tasks))
	for i, t := range b.tasks {
		out[i] = t.Clone()
	}
	return out
}

// LaneIDs returns the stored order of the tasks with status s.
func (b *Backend) LaneIDs(s task.Status) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := []string{}
	for _, t := range b.tasks {
		if t.Status == s {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// begin records the call, waits for the configured latency and returns an
// injected failure, if any.
func (b *Backend) begin(ctx context.Context, c Call) error {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	latency := b.latency
	var injected error
	if queue := b.failures[c.Op]; len(queue) > 0 {
		injected = queue[0]
		b.failures[c.Op] = queue[1:]
	}
	b.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return injected
}

func (b *Backend) ListTasks(ctx context.Context, lf task.ListFilter) ([]task.Task, error) {
	if err := b.begin(ctx, Call{Op: OpListTasks}); err != nil {
		return nil, err
	}
	c := filter.Criteria{Status: lf.Status, Due: filter.DueBucket(lf.DueDate)}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []task.Task{}
	for _, t := range filter.Apply(b.tasks, c, b.now()) {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (b *Backend) CreateTask(ctx context.Context, in task.CreateInput) (task.Task, error) {
	if err := b.begin(ctx, Call{Op: OpCreateTask}); err != nil {
		return task.Task{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	in = in.WithDefaults()
	if err := in.Validate(now); err != nil {
		return task.Task{}, err
	}
	t := task.Task{
		ID:          ulid.MustNew(ulid.Timestamp(now), b.entropy).String(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Assignees:   assignees(in.AssigneeIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.tasks = append(b.tasks, t)
	return t.Clone(), nil
}

func (b *Backend) UpdateTask(ctx context.Context, id string, in task.UpdateInput) (task.Task, error) {
	if err := b.begin(ctx, Call{Op: OpUpdateTask, TaskID: id}); err != nil {
		return task.Task{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.find(id)
	if err != nil {
		return task.Task{}, err
	}
	if err := in.Validate(b.now()); err != nil {
		return task.Task{}, err
	}
	t := in.Apply(b.tasks[i])
	if in.AssigneeIDs != nil {
		t.Assignees = assignees(*in.AssigneeIDs)
	}
	t.UpdatedAt = b.now()
	b.tasks[i] = t
	return t.Clone(), nil
}

func (b *Backend) DeleteTask(ctx context.Context, id string) error {
	if err := b.begin(ctx, Call{Op: OpDeleteTask, TaskID: id}); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.find(id)
	if err != nil {
		return err
	}
	b.tasks = slices.Delete(b.tasks, i, i+1)
	return nil
}

func (b *Backend) SetLaneOrder(ctx context.Context, order task.LaneOrder) error {
	if err := b.begin(ctx, Call{Op: OpSetLaneOrder, Order: order}); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !order.Status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown status %q", order.Status), nil)
	}
	b.applyOrder(order)
	return nil
}

func (b *Backend) SetLaneOrderAndStatus(ctx context.Context, order task.LaneOrder, movedTaskID string, newStatus task.Status) error {
	if err := b.begin(ctx, Call{Op: OpSetLaneOrderAndStatus, TaskID: movedTaskID, Order: order, NewStatus: newStatus}); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !newStatus.Valid() || newStatus != order.Status {
		return cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("status %q does not match lane %q", newStatus, order.Status), nil)
	}
	i, err := b.find(movedTaskID)
	if err != nil {
		return err
	}
	b.tasks[i] = b.tasks[i].WithStatus(newStatus)
	b.tasks[i].UpdatedAt = b.now()
	b.applyOrder(order)
	return nil
}

// applyOrder rearranges the tasks of one status into the slots they already
// occupy in the global order. Ids not in the lane are ignored; lane tasks
// missing from the order keep their relative order after the listed ones.
func (b *Backend) applyOrder(order task.LaneOrder) {
	if last, ok := b.revisions[order.Status]; ok && order.Revision != "" && order.Revision <= last {
		return
	}
	if order.Revision != "" {
		b.revisions[order.Status] = order.Revision
	}

	var slots []int
	byID := map[string]task.Task{}
	for i, t := range b.tasks {
		if t.Status == order.Status {
			slots = append(slots, i)
			byID[t.ID] = t
		}
	}
	lane := make([]task.Task, 0, len(slots))
	for _, id := range order.TaskIDs {
		if t, ok := byID[id]; ok {
			lane = append(lane, t)
			delete(byID, id)
		}
	}
	for _, i := range slots {
		if t, ok := byID[b.tasks[i].ID]; ok {
			lane = append(lane, t)
		}
	}
	if len(lane) != len(slots) {
		return
	}
	for n, i := range slots {
		b.tasks[i] = lane[n]
	}
}

func (b *Backend) find(id string) (int, error) {
	i := slices.IndexFunc(b.tasks, func(t task.Task) bool { return t.ID == id })
	if i < 0 {
		return -1, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", id), nil)
	}
	return i, nil
}

func assignees(ids []string) []task.Assignee {
	if len(ids) == 0 {
		return nil
	}
	out := make([]task.Assignee, len(ids))
	for i, id := range ids {
		out[i] = task.Assignee{ID: id, Name: id}
	}
	return out
}
