package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/remote/remotetest"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

func testTasks() []task.Task {
	return []task.Task{
		{ID: "A", Title: "Fix bug", Status: task.StatusTodo, Priority: task.PriorityHigh},
		{ID: "B", Title: "Write docs", Status: task.StatusTodo, Priority: task.PriorityLow},
		{ID: "C", Title: "Review", Status: task.StatusInProgress, Priority: task.PriorityMedium},
	}
}

func newTestApp(t *testing.T, output string) (*App, *remotetest.Backend, *bytes.Buffer) {
	t.Helper()
	return newTestAppWith(t, output, testTasks())
}

func newTestAppWith(t *testing.T, output string, tasks []task.Task) (*App, *remotetest.Backend, *bytes.Buffer) {
	t.Helper()
	backend := remotetest.NewBackend(tasks...)
	srv := remotetest.NewServer(backend, remotetest.WithToken("token"))
	t.Cleanup(srv.Close)

	env := &config.Env{
		BaseEnv: config.BaseEnv{Env: "test", LogLevel: "error", Output: output},
		RemoteEnv: config.RemoteEnv{
			APIURL:         srv.BaseURL(),
			APIToken:       "token",
			RequestTimeout: time.Second,
		},
	}
	var out bytes.Buffer
	a := newApp(env, &out)
	t.Cleanup(a.Close)
	return a, backend, &out
}

func TestNewApp_RefreshesExpiredToken(t *testing.T) {
	backend := remotetest.NewBackend(testTasks()...)
	srv := remotetest.NewServer(backend, remotetest.WithToken("fresh"), remotetest.WithRefreshToken("refresh"))
	t.Cleanup(srv.Close)

	env := &config.Env{
		BaseEnv: config.BaseEnv{Env: "test", LogLevel: "error", Output: "text"},
		RemoteEnv: config.RemoteEnv{
			APIURL:         srv.BaseURL(),
			APIToken:       "expired",
			RefreshToken:   "refresh",
			RequestTimeout: time.Second,
		},
	}
	var out bytes.Buffer
	a := newApp(env, &out)
	t.Cleanup(a.Close)

	require.NoError(t, a.store.Load(context.Background()))
	assert.Len(t, a.store.Tasks(), 3)
}

func TestDragTo(t *testing.T) {
	b := board.Board{Todo: []string{"A", "B"}, InProgress: []string{"C"}, Completed: []string{}}

	ev, err := dragTo(b, "A", board.LaneInProgress, -1)
	require.NoError(t, err)
	assert.Equal(t, board.Move(board.LaneTodo, 0, board.LaneInProgress, 1), ev)

	ev, err = dragTo(b, "A", board.LaneTodo, -1)
	require.NoError(t, err)
	assert.Equal(t, board.Move(board.LaneTodo, 0, board.LaneTodo, 1), ev)

	ev, err = dragTo(b, "C", board.LaneCompleted, 0)
	require.NoError(t, err)
	assert.Equal(t, board.Move(board.LaneInProgress, 0, board.LaneCompleted, 0), ev)

	_, err = dragTo(b, "Z", board.LaneTodo, 0)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestRenderer_BoardText(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, "text", false)
	b := board.Board{Todo: []string{"A", "B"}, InProgress: []string{"C"}, Completed: []string{}}
	require.NoError(t, r.Board(b, testTasks()))

	assert.Equal(t, strings.Join([]string{
		"To Do (2)",
		"  0. [High] Fix bug (A)",
		"  1. [Low] Write docs (B)",
		"In Progress (1)",
		"  0. [Medium] Review (C)",
		"Completed (0)",
		"",
	}, "\n"), out.String())
}

func TestRenderer_Diff(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, "text", false)
	before := board.Board{Todo: []string{"A", "B"}, InProgress: []string{"C"}, Completed: []string{}}
	after, _, err := board.Reorder(before, board.Move(board.LaneTodo, 0, board.LaneInProgress, 1))
	require.NoError(t, err)

	require.NoError(t, r.Diff(before, after, testTasks()))
	diff := out.String()
	assert.Contains(t, diff, "--- before")
	assert.Contains(t, diff, "+++ after")
	assert.Contains(t, diff, "-  0. [High] Fix bug (A)")
	assert.Contains(t, diff, "+  1. [High] Fix bug (A)")
	assert.Contains(t, diff, "-To Do (2)")
	assert.Contains(t, diff, "+In Progress (2)")
}

func TestRenderer_Structured(t *testing.T) {
	b := board.Board{Todo: []string{"A", "B"}, InProgress: []string{"C"}, Completed: []string{}}

	var js bytes.Buffer
	require.NoError(t, NewRenderer(&js, "json", false).Board(b, testTasks()))
	assert.Contains(t, js.String(), `"lane": "inProgress"`)

	var ym bytes.Buffer
	require.NoError(t, NewRenderer(&ym, "yaml", false).Board(b, testTasks()))
	assert.Contains(t, ym.String(), "lane: inProgress")
	assert.Contains(t, ym.String(), "title: Fix bug")
}

func TestShell_DragAndFilter(t *testing.T) {
	a, backend, out := newTestApp(t, "text")

	input := strings.Join([]string{
		"drag todo 0 todo 1",
		"filter search=docs",
		"clear",
		`create "Ship release"`,
		"drag todo 5 todo 0",
		"drop todo 0",
		"quit",
	}, "\n")
	require.NoError(t, a.shell(context.Background(), strings.NewReader(input)))

	assert.Equal(t, []string{"B", "A"}, backend.LaneIDs(task.StatusTodo)[:2])
	text := out.String()
	assert.Contains(t, text, "saved the order of todo")
	assert.Contains(t, text, "Ship release")
	assert.Contains(t, text, "error:")
}

func TestShell_BoardShownWithRejectedTasks(t *testing.T) {
	tasks := append(testTasks(), task.Task{ID: "Z", Title: "Blocked", Status: "blocked"})
	a, backend, out := newTestAppWith(t, "text", tasks)

	input := strings.Join([]string{"board", "move A in_progress", "quit"}, "\n")
	require.NoError(t, a.shell(context.Background(), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "To Do (2)")
	assert.Contains(t, text, "In Progress (1)")
	assert.Contains(t, text, "Z (")
	assert.Equal(t, []string{"C", "A"}, backend.LaneIDs(task.StatusInProgress))
}

func TestRun_MoveWaitsForBackend(t *testing.T) {
	a, backend, out := newTestApp(t, "text")
	*moveID = "A"
	*moveLane = "completed"
	*moveIndex = -1
	*moveDiff = true
	*moveFilter.search, *moveFilter.status, *moveFilter.priority, *moveFilter.due = "", "", "", ""

	require.NoError(t, run(context.Background(), a, moveCmd.FullCommand()))
	assert.Equal(t, []string{"A"}, backend.LaneIDs(task.StatusCompleted))
	assert.Contains(t, out.String(), "+Completed (1)")
}
