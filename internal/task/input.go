package task

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kazz187/taskboard/pkg/cerr"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	DueDate     *Date    `json:"due_date,omitempty"`
	AssigneeIDs []string `json:"assignee_ids,omitempty"`
}

// WithDefaults fills the status and priority a new task gets when the caller
// leaves them empty.
func (in CreateInput) WithDefaults() CreateInput {
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	return in
}

func (in CreateInput) Validate(now time.Time) error {
	v := validator{fields: map[string]string{}}
	v.title(&in.Title)
	v.description(&in.Description)
	v.status(&in.Status)
	v.priority(&in.Priority)
	v.dueDate(in.DueDate, now)
	return v.err()
}

// UpdateInput carries the fields to change; nil fields are left as they are.
type UpdateInput struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *Date     `json:"due_date,omitempty"`
	ClearDue    bool      `json:"clear_due_date,omitempty"`
	AssigneeIDs *[]string `json:"assignee_ids,omitempty"`
}

func (in UpdateInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil &&
		in.Priority == nil && in.DueDate == nil && !in.ClearDue && in.AssigneeIDs == nil
}

func (in UpdateInput) Validate(now time.Time) error {
	v := validator{fields: map[string]string{}}
	if in.Title != nil {
		v.title(in.Title)
	}
	if in.Description != nil {
		v.description(in.Description)
	}
	if in.Status != nil {
		v.status(in.Status)
	}
	if in.Priority != nil {
		v.priority(in.Priority)
	}
	if in.DueDate != nil && in.ClearDue {
		v.fields["due_date"] = "Cannot set and clear the due date at once"
	}
	v.dueDate(in.DueDate, now)
	return v.err()
}

// Apply returns a copy of t with the input applied. Assignee ids are resolved
// by the backend, so they are not applied here.
func (in UpdateInput) Apply(t Task) Task {
	c := t.Clone()
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.Priority != nil {
		c.Priority = *in.Priority
	}
	if in.DueDate != nil {
		d := *in.DueDate
		c.DueDate = &d
	}
	if in.ClearDue {
		c.DueDate = nil
	}
	return c
}

type validator struct {
	fields map[string]string
}

func (v *validator) title(title *string) {
	switch {
	case strings.TrimSpace(*title) == "":
		v.fields["title"] = "Task title is required"
	case utf8.RuneCountInString(*title) > MaxTitleLength:
		v.fields["title"] = "Task title cannot exceed 100 characters"
	}
}

func (v *validator) description(desc *string) {
	if utf8.RuneCountInString(*desc) > MaxDescriptionLength {
		v.fields["description"] = "Description cannot exceed 1000 characters"
	}
}

func (v *validator) status(s *Status) {
	if *s != "" && !s.Valid() {
		v.fields["status"] = "Invalid status value"
	}
}

func (v *validator) priority(p *Priority) {
	if *p != "" && !p.Valid() {
		v.fields["priority"] = "Invalid priority value"
	}
}

func (v *validator) dueDate(d *Date, now time.Time) {
	if d != nil && d.Before(DateOf(now)) {
		v.fields["due_date"] = "Due date cannot be in the past"
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return cerr.NewFieldError("invalid task", v.fields)
}
