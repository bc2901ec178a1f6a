package boardsync

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/panicerr"
)

const DefaultTimeout = 10 * time.Second

// Persister is the part of task.Repository that stores lane orders.
type Persister interface {
	SetLaneOrder(ctx context.Context, order task.LaneOrder) error
	SetLaneOrderAndStatus(ctx context.Context, order task.LaneOrder, movedTaskID string, newStatus task.Status) error
}

// PersistError reports a change the backend did not store. The board keeps
// showing the change anyway.
type PersistError struct {
	Change   board.Change
	Revision string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s order (revision %s): %v", e.Change.Lane, e.Revision, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type Option func(*Coordinator)

// WithTimeout bounds every persistence call. A call that does not answer in
// time is a failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator sends every reorder to the backend without waiting for earlier
// ones to finish. Calls start in the order Apply was called. It never retries
// and never rolls back.
type Coordinator struct {
	repo    Persister
	bus     *eventbus.Bus
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	issued  <-chan struct{}
	wg      conc.WaitGroup
}

// turn lets a call start only after the previous call has started.
type turn struct {
	prev    <-chan struct{}
	started chan struct{}
	once    sync.Once
}

func (t *turn) wait() {
	<-t.prev
}

func (t *turn) start() {
	t.once.Do(func() { close(t.started) })
}

func New(repo Persister, bus *eventbus.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:    repo,
		bus:     bus,
		timeout: DefaultTimeout,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	issued := make(chan struct{})
	close(issued)
	c.issued = issued
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply issues exactly one persistence call for change and returns at once.
// The channel receives nil or a *PersistError and is then closed.
//
// Calls reach the Persister in Apply order and run concurrently once started.
// Cancelling ctx after Apply returns does not cancel the call; only the
// coordinator timeout does.
func (c *Coordinator) Apply(ctx context.Context, change board.Change) <-chan error {
	done := make(chan error, 1)
	revision, t := c.take()
	order := change.LaneOrder(revision)

	callCtx := clog.ContextWithSlog(context.WithoutCancel(ctx))
	clog.AddAttributes(callCtx, map[string]any{
		clog.LaneAttributeKey:     string(change.Lane),
		clog.TaskAttributeKey:     change.MovedTaskID,
		clog.RevisionAttributeKey: revision,
	})

	c.wg.Go(func() {
		defer close(done)
		defer t.start()
		t.wait()
		err := c.persist(callCtx, change, order, t)
		if err != nil {
			err = &PersistError{Change: change, Revision: revision, Err: err}
		}
		c.report(callCtx, change, revision, err)
		done <- err
	})
	return done
}

func (c *Coordinator) persist(ctx context.Context, change board.Change, order task.LaneOrder, t *turn) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if change.CrossLane() {
		err := panicerr.SafeContext(ctx, "set lane order and status", func(ctx context.Context) error {
			t.start()
			return c.repo.SetLaneOrderAndStatus(ctx, order, change.MovedTaskID, change.NewStatus)
		})
		return cerr.WrapRemoteError("set lane order and status", err)
	}
	err := panicerr.SafeContext(ctx, "set lane order", func(ctx context.Context) error {
		t.start()
		return c.repo.SetLaneOrder(ctx, order)
	})
	return cerr.WrapRemoteError("set lane order", err)
}

func (c *Coordinator) report(ctx context.Context, change board.Change, revision string, err error) {
	metadata := map[string]string{
		"lane":     string(change.Lane),
		"revision": revision,
	}
	if err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "failed to persist board order", "error", err)
		c.bus.PublishNew(eventbus.KindPersistFailed, change.MovedTaskID,
			fmt.Sprintf("could not save the new order of %s: %v", change.Lane, cerr.CodeOf(err)), metadata)
		return
	}
	slog.DebugContext(ctx, "persisted board order")
	c.bus.PublishNew(eventbus.KindPersistSucceeded, change.MovedTaskID,
		fmt.Sprintf("saved the order of %s", change.Lane), metadata)
}

// take assigns the next revision and the call's place in the issue order
// under one lock, so both follow Apply order.
func (c *Coordinator) take() (string, *turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &turn{prev: c.issued, started: make(chan struct{})}
	c.issued = t.started
	return c.revisionLocked(), t
}

func (c *Coordinator) revisionLocked() string {
	return ulid.MustNew(ulid.Timestamp(c.now()), c.entropy).String()
}

// Close waits for every call issued by Apply to finish.
func (c *Coordinator) Close() {
	c.wg.Wait()
}
