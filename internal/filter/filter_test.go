package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func due(days int) *task.Date {
	d := task.DateOf(now).AddDays(days)
	return &d
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestApply_Search(t *testing.T) {
	tasks := []task.Task{
		{ID: "1", Title: "Fix bug", Status: task.StatusTodo},
		{ID: "2", Title: "Write docs", Status: task.StatusCompleted},
	}
	got := Apply(tasks, Criteria{Search: "fix"}, now)
	assert.Equal(t, []string{"1"}, ids(got))

	got = Apply(tasks, Criteria{Search: "  DOCS "}, now)
	assert.Equal(t, []string{"2"}, ids(got))

	got = Apply(tasks, Criteria{Search: "   "}, now)
	assert.Equal(t, []string{"1", "2"}, ids(got))
}

func TestApply_Conjunctive(t *testing.T) {
	tasks := []task.Task{
		{ID: "1", Title: "Fix login", Status: task.StatusTodo, Priority: task.PriorityHigh},
		{ID: "2", Title: "Fix logout", Status: task.StatusTodo, Priority: task.PriorityLow},
		{ID: "3", Title: "Fix signup", Status: task.StatusCompleted, Priority: task.PriorityHigh},
		{ID: "4", Title: "Release", Status: task.StatusTodo, Priority: task.PriorityHigh},
	}
	got := Apply(tasks, Criteria{Search: "fix", Status: task.StatusTodo, Priority: task.PriorityHigh}, now)
	assert.Equal(t, []string{"1"}, ids(got))

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(Apply(tasks, Clear(), now)))
}

func TestApply_DueBuckets(t *testing.T) {
	tasks := []task.Task{
		{ID: "none", Status: task.StatusTodo},
		{ID: "yesterday", Status: task.StatusTodo, DueDate: due(-1)},
		{ID: "yesterday-done", Status: task.StatusCompleted, DueDate: due(-1)},
		{ID: "today", Status: task.StatusInProgress, DueDate: due(0)},
		{ID: "in6", Status: task.StatusTodo, DueDate: due(6)},
		{ID: "in7", Status: task.StatusTodo, DueDate: due(7)},
		{ID: "in29", Status: task.StatusTodo, DueDate: due(29)},
		{ID: "in30", Status: task.StatusTodo, DueDate: due(30)},
	}
	tests := []struct {
		bucket DueBucket
		want   []string
	}{
		{bucket: DueToday, want: []string{"today"}},
		{bucket: DueWeek, want: []string{"today", "in6"}},
		{bucket: DueMonth, want: []string{"today", "in6", "in7", "in29"}},
		{bucket: DueOverdue, want: []string{"yesterday"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(tasks, Criteria{Due: tt.bucket}, now)))
		})
	}
}

func TestApply_DueUsesLocationOfNow(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-03-10 23:30 UTC is already 2026-03-11 in Tokyo.
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	d := task.NewDate(2026, 3, 11)
	tasks := []task.Task{{ID: "1", Status: task.StatusTodo, DueDate: &d}}

	assert.Empty(t, Apply(tasks, Criteria{Due: DueToday}, late))
	assert.Len(t, Apply(tasks, Criteria{Due: DueToday}, late.In(tokyo)), 1)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	tasks := []task.Task{
		{ID: "1", Title: "a", Status: task.StatusTodo},
		{ID: "2", Title: "b", Status: task.StatusCompleted},
	}
	_ = Apply(tasks, Criteria{Status: task.StatusCompleted}, now)
	assert.Equal(t, []string{"1", "2"}, ids(tasks))
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(map[string]string{
		"search":   " fix ",
		"status":   "in_progress",
		"priority": "all",
		"due":      "week",
	})
	require.NoError(t, err)
	assert.Equal(t, Criteria{Search: "fix", Status: task.StatusInProgress, Due: DueWeek}, c)
	assert.Equal(t, task.ListFilter{Status: task.StatusInProgress, DueDate: "week"}, c.ListFilter())

	_, err = ParseCriteria(map[string]string{"status": "done"})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = ParseCriteria(map[string]string{"owner": "me"})
	require.Error(t, err)

	c, err = ParseCriteria(nil)
	require.NoError(t, err)
	assert.True(t, c.Empty())
}
