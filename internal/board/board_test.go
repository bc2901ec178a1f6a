package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

func tk(id string, s task.Status) task.Task {
	return task.Task{ID: id, Title: "Task " + id, Status: s, Priority: task.PriorityMedium}
}

func TestPartition(t *testing.T) {
	tasks := []task.Task{
		tk("A", task.StatusTodo),
		tk("B", task.StatusCompleted),
		tk("C", task.StatusInProgress),
		tk("D", task.StatusTodo),
		tk("E", task.StatusCompleted),
	}
	b, err := Partition(tasks)
	require.NoError(t, err)
	assert.Equal(t, Board{
		Todo:       []string{"A", "D"},
		InProgress: []string{"C"},
		Completed:  []string{"B", "E"},
	}, b)
}

func TestPartition_Empty(t *testing.T) {
	b, err := Partition(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.NotNil(t, b.Todo)
}

func TestPartition_UnknownStatus(t *testing.T) {
	tasks := []task.Task{
		tk("A", task.StatusTodo),
		tk("B", "review"),
		tk("C", ""),
		tk("D", task.StatusCompleted),
	}
	b, err := Partition(tasks)
	require.Error(t, err)
	assert.True(t, cerr.IsValidation(err))
	assert.Contains(t, err.Error(), "B")
	assert.Contains(t, err.Error(), "C")

	assert.Equal(t, []string{"A"}, b.Todo)
	assert.Empty(t, b.InProgress)
	assert.Equal(t, []string{"D"}, b.Completed)
	_, _, found := b.Locate("B")
	assert.False(t, found, "unknown status must not fall back to todo")
}

func TestPartition_DuplicateID(t *testing.T) {
	b, err := Partition([]task.Task{tk("A", task.StatusTodo), tk("A", task.StatusCompleted)})
	require.Error(t, err)
	assert.Equal(t, []string{"A"}, b.Todo)
	assert.Empty(t, b.Completed)
}

func TestParseLaneName(t *testing.T) {
	for in, want := range map[string]LaneName{
		"todo":        LaneTodo,
		"inProgress":  LaneInProgress,
		"in_progress": LaneInProgress,
		"completed":   LaneCompleted,
	} {
		got, err := ParseLaneName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLaneName("done")
	assert.True(t, cerr.IsValidation(err))
}

func TestLaneStatusMapping(t *testing.T) {
	assert.Equal(t, task.StatusInProgress, LaneInProgress.Status())
	assert.Equal(t, task.StatusTodo, LaneTodo.Status())
	assert.Equal(t, task.StatusCompleted, LaneCompleted.Status())
	for _, l := range Lanes {
		back, ok := LaneFor(l.Status())
		assert.True(t, ok)
		assert.Equal(t, l, back)
	}
	_, ok := LaneFor("review")
	assert.False(t, ok)
}

func TestBoard_LocateAndFlatten(t *testing.T) {
	b := Board{Todo: []string{"A", "B"}, InProgress: []string{"C"}, Completed: []string{}}
	lane, idx, ok := b.Locate("B")
	require.True(t, ok)
	assert.Equal(t, LaneTodo, lane)
	assert.Equal(t, 1, idx)
	_, _, ok = b.Locate("Z")
	assert.False(t, ok)

	tasks := []task.Task{tk("C", task.StatusInProgress), tk("B", task.StatusTodo), tk("A", task.StatusTodo)}
	flat := b.Flatten(tasks)
	require.Len(t, flat, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{flat[0].ID, flat[1].ID, flat[2].ID})
}
