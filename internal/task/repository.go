package task

import "context"

// LaneOrder is the full display order of one lane. Revision increases with
// every order a client sends, so a backend can discard an order that arrives
// after a newer one for the same lane.
type LaneOrder struct {
	Status   Status   `json:"status"`
	TaskIDs  []string `json:"task_ids"`
	Revision string   `json:"revision"`
}

// ListFilter is the part of the board filters the backend understands.
type ListFilter struct {
	Status  Status `json:"status,omitempty"`
	DueDate string `json:"due_date,omitempty"`
}

// Repository is the remote persistence service the board talks to.
type Repository interface {
	ListTasks(ctx context.Context, filter ListFilter) ([]Task, error)
	SetLaneOrder(ctx context.Context, order LaneOrder) error
	SetLaneOrderAndStatus(ctx context.Context, order LaneOrder, movedTaskID string, newStatus Status) error
	CreateTask(ctx context.Context, in CreateInput) (Task, error)
	UpdateTask(ctx context.Context, id string, in UpdateInput) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}
