package board

import (
	"fmt"
	"slices"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type LaneName string

const (
	LaneTodo       LaneName = "todo"
	LaneInProgress LaneName = "inProgress"
	LaneCompleted  LaneName = "completed"
)

// Lanes lists the lanes in display order.
var Lanes = []LaneName{LaneTodo, LaneInProgress, LaneCompleted}

func (l LaneName) Valid() bool {
	return slices.Contains(Lanes, l)
}

// Status returns the canonical status of the lane.
func (l LaneName) Status() task.Status {
	switch l {
	case LaneTodo:
		return task.StatusTodo
	case LaneInProgress:
		return task.StatusInProgress
	case LaneCompleted:
		return task.StatusCompleted
	}
	return ""
}

// LaneFor returns the lane holding tasks of status s.
func LaneFor(s task.Status) (LaneName, bool) {
	switch s {
	case task.StatusTodo:
		return LaneTodo, true
	case task.StatusInProgress:
		return LaneInProgress, true
	case task.StatusCompleted:
		return LaneCompleted, true
	}
	return "", false
}

// ParseLaneName accepts a lane name or the status it holds, so "in_progress"
// and "inProgress" name the same lane.
func ParseLaneName(s string) (LaneName, error) {
	if l := LaneName(s); l.Valid() {
		return l, nil
	}
	if l, ok := LaneFor(task.Status(s)); ok {
		return l, nil
	}
	return "", cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown lane %q", s), nil)
}

// Board is the three lanes at one instant. Lanes hold task ids in display order.
// A Board is never modified in place; Reorder returns a new one.
type Board struct {
	Todo       []string `json:"todo" yaml:"todo"`
	InProgress []string `json:"inProgress" yaml:"inProgress"`
	Completed  []string `json:"completed" yaml:"completed"`
}

func (b Board) Lane(name LaneName) ([]string, error) {
	switch name {
	case LaneTodo:
		return b.Todo, nil
	case LaneInProgress:
		return b.InProgress, nil
	case LaneCompleted:
		return b.Completed, nil
	}
	return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown lane %q", name), nil)
}

func (b Board) withLane(name LaneName, ids []string) Board {
	switch name {
	case LaneTodo:
		b.Todo = ids
	case LaneInProgress:
		b.InProgress = ids
	case LaneCompleted:
		b.Completed = ids
	}
	return b
}

// IDs concatenates the lanes in lane order.
func (b Board) IDs() []string {
	ids := make([]string, 0, b.Len())
	ids = append(ids, b.Todo...)
	ids = append(ids, b.InProgress...)
	return append(ids, b.Completed...)
}

func (b Board) Len() int {
	return len(b.Todo) + len(b.InProgress) + len(b.Completed)
}

// Locate returns the lane and index of id.
func (b Board) Locate(id string) (LaneName, int, bool) {
	for _, name := range Lanes {
		ids, _ := b.Lane(name)
		if i := slices.Index(ids, id); i >= 0 {
			return name, i, true
		}
	}
	return "", 0, false
}

func (b Board) Equal(o Board) bool {
	return slices.Equal(b.Todo, o.Todo) &&
		slices.Equal(b.InProgress, o.InProgress) &&
		slices.Equal(b.Completed, o.Completed)
}

// Flatten returns the tasks on the board in board order. Ids without a task in
// tasks are skipped.
func (b Board) Flatten(tasks []task.Task) []task.Task {
	byID := task.IndexByID(tasks)
	out := make([]task.Task, 0, b.Len())
	for _, id := range b.IDs() {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}
