package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// DueBucket selects tasks by due date relative to today.
type DueBucket string

const (
	DueAny     DueBucket = ""
	DueToday   DueBucket = "today"
	DueWeek    DueBucket = "week"
	DueMonth   DueBucket = "month"
	DueOverdue DueBucket = "overdue"
)

var DueBuckets = []DueBucket{DueToday, DueWeek, DueMonth, DueOverdue}

func (b DueBucket) Valid() bool {
	return b == DueAny || slices.Contains(DueBuckets, b)
}

// Criteria narrow the task collection. Every non-empty field must match.
type Criteria struct {
	Search   string        `json:"search,omitempty" yaml:"search,omitempty"`
	Status   task.Status   `json:"status,omitempty" yaml:"status,omitempty"`
	Priority task.Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Due      DueBucket     `json:"due,omitempty" yaml:"due,omitempty"`
}

// Clear returns criteria that match every task.
func Clear() Criteria {
	return Criteria{}
}

func (c Criteria) Empty() bool {
	return c == Criteria{}
}

func (c Criteria) Validate() error {
	fields := map[string]string{}
	if c.Status != "" && !c.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", c.Status)
	}
	if c.Priority != "" && !c.Priority.Valid() {
		fields["priority"] = fmt.Sprintf("unknown priority %q", c.Priority)
	}
	if !c.Due.Valid() {
		fields["due"] = fmt.Sprintf("unknown due date bucket %q", c.Due)
	}
	if len(fields) > 0 {
		return cerr.NewFieldError("invalid filter", fields)
	}
	return nil
}

// ListFilter translates the criteria the backend can evaluate itself.
func (c Criteria) ListFilter() task.ListFilter {
	return task.ListFilter{Status: c.Status, DueDate: string(c.Due)}
}

// ParseCriteria builds criteria from key=value pairs. Keys are search, status,
// priority and due; "all" is accepted as an empty value for the enumerated
// keys.
func ParseCriteria(kv map[string]string) (Criteria, error) {
	var c Criteria
	for k, v := range kv {
		v = strings.TrimSpace(v)
		if v == "all" && k != "search" {
			v = ""
		}
		switch strings.ToLower(k) {
		case "search", "q":
			c.Search = v
		case "status":
			c.Status = task.Status(v)
		case "priority":
			c.Priority = task.Priority(v)
		case "due", "due_date", "duedate":
			c.Due = DueBucket(v)
		default:
			return Criteria{}, cerr.NewFieldError("invalid filter", map[string]string{k: "unknown filter"})
		}
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Apply returns the tasks matching c in their original order. Due buckets use
// calendar days in now's location.
func Apply(tasks []task.Task, c Criteria, now time.Time) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	search := strings.ToLower(strings.TrimSpace(c.Search))
	today := task.DateOf(now)
	for _, t := range tasks {
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) {
			continue
		}
		if c.Status != "" && t.Status != c.Status {
			continue
		}
		if c.Priority != "" && t.Priority != c.Priority {
			continue
		}
		if c.Due != DueAny && !inBucket(t, c.Due, today) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func inBucket(t task.Task, b DueBucket, today task.Date) bool {
	if t.DueDate == nil {
		return false
	}
	due := *t.DueDate
	switch b {
	case DueToday:
		return due == today
	case DueWeek:
		return !due.Before(today) && due.Before(today.AddDays(7))
	case DueMonth:
		return !due.Before(today) && due.Before(today.AddDays(30))
	case DueOverdue:
		return due.Before(today) && t.Status != task.StatusCompleted
	}
	return false
}
