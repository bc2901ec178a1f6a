package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/filter"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type filterArgs struct {
	search   *string
	status   *string
	priority *string
	due      *string
}

func addFilterFlags(cmd *kingpin.CmdClause) *filterArgs {
	return &filterArgs{
		search:   cmd.Flag("search", "Only tasks whose title contains this text").Short('s').String(),
		status:   cmd.Flag("status", "Only tasks with this status").Enum("all", "todo", "in_progress", "completed"),
		priority: cmd.Flag("priority", "Only tasks with this priority").Enum("all", "low", "medium", "high"),
		due:      cmd.Flag("due", "Only tasks due today, this week, this month or overdue").Enum("all", "today", "week", "month", "overdue"),
	}
}

func (f *filterArgs) criteria() (filter.Criteria, error) {
	return filter.ParseCriteria(map[string]string{
		"search":   *f.search,
		"status":   *f.status,
		"priority": *f.priority,
		"due":      *f.due,
	})
}

var (
	app = kingpin.New("taskboard", "Kanban board for tasks stored in a remote task service")

	apiURL   = app.Flag("api-url", "Base URL of the task service").String()
	output   = app.Flag("output", "Output format").Short('o').Enum("text", "json", "yaml")
	noColor  = app.Flag("no-color", "Disable colored output").Bool()
	logLevel = app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	boardCmd    = app.Command("board", "Show the board").Default()
	boardFilter = addFilterFlags(boardCmd)

	listCmd    = app.Command("list", "List tasks in board order")
	listFilter = addFilterFlags(listCmd)

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	createCmd         = app.Command("create", "Create a new task")
	createTitle       = createCmd.Arg("title", "Task title").Required().String()
	createDescription = createCmd.Flag("description", "Task description").Short('d').String()
	createStatus      = createCmd.Flag("status", "Initial status").Default("todo").Enum("todo", "in_progress", "completed")
	createPriority    = createCmd.Flag("priority", "Priority").Default("medium").Enum("low", "medium", "high")
	createDue         = createCmd.Flag("due", "Due date (YYYY-MM-DD)").String()
	createAssignees   = createCmd.Flag("assignee", "Assignee ID, may be repeated").Strings()

	updateCmd         = app.Command("update", "Update a task")
	updateID          = updateCmd.Arg("id", "Task ID").Required().String()
	updateTitle       = updateCmd.Flag("title", "New title").String()
	updateDescription = updateCmd.Flag("description", "New description").Short('d').String()
	updateStatus      = updateCmd.Flag("status", "New status").Enum("todo", "in_progress", "completed")
	updatePriority    = updateCmd.Flag("priority", "New priority").Enum("low", "medium", "high")
	updateDue         = updateCmd.Flag("due", "New due date (YYYY-MM-DD)").String()
	updateClearDue    = updateCmd.Flag("clear-due", "Remove the due date").Bool()
	updateAssignees   = updateCmd.Flag("assignee", "Replace assignees, may be repeated").Strings()

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	moveCmd    = app.Command("move", "Move a task to a lane position, as if dragged on the board")
	moveID     = moveCmd.Arg("id", "Task ID").Required().String()
	moveLane   = moveCmd.Arg("lane", "Destination lane (todo, inProgress, completed)").Required().String()
	moveIndex  = moveCmd.Flag("index", "Destination index; defaults to the end of the lane").Default("-1").Int()
	moveDiff   = moveCmd.Flag("diff", "Print the board diff").Bool()
	moveFilter = addFilterFlags(moveCmd)

	shellCmd = app.Command("shell", "Interactive board shell")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyGlobalFlags(env)
	setupLogger(env, os.Stderr)

	ctx, stop := signal.NotifyContext(newContext(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(env, os.Stdout)
	err = run(ctx, a, command)
	a.Close()
	if err != nil {
		a.render.Error(os.Stderr, err)
		os.Exit(1)
	}
}

func applyGlobalFlags(env *config.Env) {
	if *apiURL != "" {
		env.APIURL = *apiURL
	}
	if *output != "" {
		env.Output = *output
	}
	if *noColor {
		env.Color = false
	}
	if *logLevel != "" {
		env.LogLevel = *logLevel
	}
}

func run(ctx context.Context, a *App, command string) error {
	switch command {
	case boardCmd.FullCommand():
		return a.showBoard(ctx, boardFilter)
	case listCmd.FullCommand():
		return a.list(ctx, listFilter)
	case showCmd.FullCommand():
		return a.show(ctx, *showID)
	case createCmd.FullCommand():
		return a.create(ctx)
	case updateCmd.FullCommand():
		return a.update(ctx)
	case deleteCmd.FullCommand():
		return a.delete(ctx, *deleteID)
	case moveCmd.FullCommand():
		return a.move(ctx)
	case shellCmd.FullCommand():
		return a.shell(ctx, os.Stdin)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (a *App) load(ctx context.Context, f *filterArgs) error {
	c, err := f.criteria()
	if err != nil {
		return err
	}
	return a.store.SetCriteria(ctx, c)
}

func (a *App) showBoard(ctx context.Context, f *filterArgs) error {
	if err := a.load(ctx, f); err != nil {
		return err
	}
	return a.printBoard()
}

func (a *App) list(ctx context.Context, f *filterArgs) error {
	if err := a.load(ctx, f); err != nil {
		return err
	}
	b, perr := a.store.Board()
	if err := a.render.Tasks(b.Flatten(a.store.Tasks())); err != nil {
		return err
	}
	return perr
}

func (a *App) show(ctx context.Context, id string) error {
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	t, err := a.store.Get(id)
	if err != nil {
		return err
	}
	return a.render.Task(t)
}

func parseDue(s string) (*task.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := task.ParseDate(s)
	if err != nil {
		return nil, cerr.NewFieldError("invalid task", map[string]string{"due_date": "Due date must be YYYY-MM-DD"})
	}
	return &d, nil
}

func (a *App) create(ctx context.Context) error {
	due, err := parseDue(*createDue)
	if err != nil {
		return err
	}
	t, err := a.store.Create(ctx, task.CreateInput{
		Title:       *createTitle,
		Description: *createDescription,
		Status:      task.Status(*createStatus),
		Priority:    task.Priority(*createPriority),
		DueDate:     due,
		AssigneeIDs: *createAssignees,
	})
	if err != nil {
		return err
	}
	return a.render.Task(t)
}

func (a *App) update(ctx context.Context) error {
	var in task.UpdateInput
	if *updateTitle != "" {
		in.Title = updateTitle
	}
	if *updateDescription != "" {
		in.Description = updateDescription
	}
	if *updateStatus != "" {
		s := task.Status(*updateStatus)
		in.Status = &s
	}
	if *updatePriority != "" {
		p := task.Priority(*updatePriority)
		in.Priority = &p
	}
	due, err := parseDue(*updateDue)
	if err != nil {
		return err
	}
	in.DueDate = due
	in.ClearDue = *updateClearDue
	if len(*updateAssignees) > 0 {
		in.AssigneeIDs = updateAssignees
	}

	if err := a.store.Load(ctx); err != nil {
		return err
	}
	t, err := a.store.Update(ctx, *updateID, in)
	if err != nil {
		return err
	}
	return a.render.Task(t)
}

func (a *App) delete(ctx context.Context, id string) error {
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	return a.store.Delete(ctx, id)
}

// move turns "put task id at lane[index]" into the drag that would do it on
// the board shown for the given filters, and waits for the backend to store it.
func (a *App) move(ctx context.Context) error {
	if err := a.load(ctx, moveFilter); err != nil {
		return err
	}
	lane, err := board.ParseLaneName(*moveLane)
	if err != nil {
		return err
	}
	// Tasks left off the board cannot be dragged; the rest can.
	before, _ := a.store.Board()
	ev, err := dragTo(before, *moveID, lane, *moveIndex)
	if err != nil {
		return err
	}

	done, err := a.store.Drop(ctx, ev)
	if err != nil {
		return err
	}
	after, _ := a.store.Board()
	if *moveDiff {
		if err := a.render.Diff(before, after, a.store.Tasks()); err != nil {
			return err
		}
	}
	return wait(ctx, done, a.env.RequestTimeout)
}

// dragTo builds the drag event that moves id to index of lane. A negative
// index means the end of the lane.
func dragTo(b board.Board, id string, lane board.LaneName, index int) (board.DragEvent, error) {
	from, fromIndex, ok := b.Locate(id)
	if !ok {
		return board.DragEvent{}, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s is not on the board", id), nil)
	}
	if index < 0 {
		ids, err := b.Lane(lane)
		if err != nil {
			return board.DragEvent{}, err
		}
		index = len(ids)
		if lane == from {
			index--
		}
	}
	return board.Move(from, fromIndex, lane, index), nil
}

// wait blocks until the persistence outcome arrives. A nil channel means
// there was nothing to persist.
func wait(ctx context.Context, done <-chan error, timeout time.Duration) error {
	if done == nil {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout + time.Second):
		return cerr.NewError(cerr.DeadlineExceeded, "no answer from the task service", nil)
	}
}
