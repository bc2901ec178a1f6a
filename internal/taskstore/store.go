package taskstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/filter"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

// Applier persists a board change in the background.
type Applier interface {
	Apply(ctx context.Context, change board.Change) <-chan error
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the flat task collection and the active filters. The
// collection is replaced, never modified in place, so slices handed out by
// Tasks stay valid.
type Store struct {
	repo  task.Repository
	coord Applier
	bus   *eventbus.Bus
	now   func() time.Time

	mu       sync.RWMutex
	tasks    []task.Task
	criteria filter.Criteria
}

func New(repo task.Repository, coord Applier, bus *eventbus.Bus, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		coord: coord,
		bus:   bus,
		now:   time.Now,
		tasks: []task.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the collection with the tasks the backend returns for the
// current filters.
func (s *Store) Load(ctx context.Context) error {
	s.mu.RLock()
	lf := s.criteria.ListFilter()
	s.mu.RUnlock()

	tasks, err := s.repo.ListTasks(ctx, lf)
	if err != nil {
		return cerr.WrapRemoteError("list tasks", err)
	}
	s.mu.Lock()
	s.tasks = slices.Clone(tasks)
	s.mu.Unlock()
	slog.DebugContext(ctx, "loaded tasks", "count", len(tasks))
	return nil
}

// Tasks returns the flat collection in board order.
func (s *Store) Tasks() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

func (s *Store) Criteria() filter.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// SetCriteria changes the active filters and reloads the collection.
func (s *Store) SetCriteria(ctx context.Context, c filter.Criteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.criteria = c
	s.mu.Unlock()
	return s.Load(ctx)
}

// Board partitions the tasks that pass the active filters. Tasks with an
// unknown status are left off and reported in the error.
func (s *Store) Board() (board.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return board.Partition(filter.Apply(s.tasks, s.criteria, s.now()))
}

func (s *Store) Get(id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return task.Task{}, notFound(id)
	}
	return s.tasks[i].Clone(), nil
}

func (s *Store) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	in = in.WithDefaults()
	if err := in.Validate(s.now()); err != nil {
		return task.Task{}, err
	}
	created, err := s.repo.CreateTask(ctx, in)
	if err != nil {
		return task.Task{}, cerr.WrapRemoteError("create task", err)
	}

	s.mu.Lock()
	s.tasks = append(slices.Clone(s.tasks), created)
	s.mu.Unlock()

	clog.AddAttribute(ctx, clog.TaskAttributeKey, created.ID)
	slog.InfoContext(ctx, "task created", "task_id", created.ID)
	s.bus.PublishNew(eventbus.KindTaskCreated, created.ID, fmt.Sprintf("created %q", created.Title), nil)
	return created, nil
}

func (s *Store) Update(ctx context.Context, id string, in task.UpdateInput) (task.Task, error) {
	current, err := s.Get(id)
	if err != nil {
		return task.Task{}, err
	}
	if in.Empty() {
		return current, nil
	}
	if err := in.Validate(s.now()); err != nil {
		return task.Task{}, err
	}
	updated, err := s.repo.UpdateTask(ctx, id, in)
	if err != nil {
		return task.Task{}, cerr.WrapRemoteError("update task", err)
	}

	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		next := slices.Clone(s.tasks)
		next[i] = updated
		s.tasks = next
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "task updated", "task_id", id)
	s.bus.PublishNew(eventbus.KindTaskUpdated, id, fmt.Sprintf("updated %q", updated.Title), nil)
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	current, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return cerr.WrapRemoteError("delete task", err)
	}

	s.mu.Lock()
	s.tasks = slices.DeleteFunc(slices.Clone(s.tasks), func(t task.Task) bool { return t.ID == id })
	s.mu.Unlock()

	slog.InfoContext(ctx, "task deleted", "task_id", id)
	s.bus.PublishNew(eventbus.KindTaskDeleted, id, fmt.Sprintf("deleted %q", current.Title), nil)
	return nil
}

// Drop applies a drag to the board shown for the current filters. Drags are
// handled one at a time.
//
// An invalid drag returns an error and changes nothing. A drop outside every
// lane returns a nil channel and a nil error. Otherwise the collection is
// updated at once and the returned channel reports whether the backend
// stored the change; the update is kept even when it did not.
func (s *Store) Drop(ctx context.Context, ev board.DragEvent) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Tasks the partition rejects stay off the board and are carried along
	// with the filtered out ones.
	current, perr := board.Partition(filter.Apply(s.tasks, s.criteria, s.now()))
	if perr != nil {
		slog.WarnContext(ctx, "board is incomplete", "error", perr)
	}
	next, change, err := board.Reorder(current, ev)
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, nil
	}

	tasks := s.tasks
	if change.CrossLane() {
		tasks = slices.Clone(tasks)
		i := slices.IndexFunc(tasks, func(t task.Task) bool { return t.ID == change.MovedTaskID })
		tasks[i] = tasks[i].WithStatus(change.NewStatus)
	}
	// Flatten emits the first task of every id on the board. Everything else,
	// repeated ids included, keeps its previous order after the board.
	onBoard := make(map[string]struct{}, next.Len())
	for _, id := range next.IDs() {
		onBoard[id] = struct{}{}
	}
	flat := next.Flatten(tasks)
	for _, t := range tasks {
		if _, ok := onBoard[t.ID]; ok {
			delete(onBoard, t.ID)
			continue
		}
		flat = append(flat, t)
	}
	s.tasks = flat

	clog.AddAttributes(ctx, map[string]any{
		clog.TaskAttributeKey: change.MovedTaskID,
		clog.LaneAttributeKey: string(change.Lane),
	})
	slog.DebugContext(ctx, "task dropped", "task_id", change.MovedTaskID, "lane", change.Lane, "cross_lane", change.CrossLane())
	return s.coord.Apply(ctx, *change), nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}

func notFound(id string) error {
	return cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", id), nil)
}
