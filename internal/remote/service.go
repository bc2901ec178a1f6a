package remote

import "github.com/kazz187/taskboard/internal/task"

const ServiceName = "taskboard.v1.TaskService"

const (
	ListTasksProcedure             = "/" + ServiceName + "/ListTasks"
	CreateTaskProcedure            = "/" + ServiceName + "/CreateTask"
	UpdateTaskProcedure            = "/" + ServiceName + "/UpdateTask"
	DeleteTaskProcedure            = "/" + ServiceName + "/DeleteTask"
	SetLaneOrderProcedure          = "/" + ServiceName + "/SetLaneOrder"
	SetLaneOrderAndStatusProcedure = "/" + ServiceName + "/SetLaneOrderAndStatus"
)

type ListTasksRequest struct {
	Filter task.ListFilter `json:"filter"`
}

type ListTasksResponse struct {
	Tasks []task.Task `json:"tasks"`
}

type CreateTaskRequest struct {
	Input task.CreateInput `json:"input"`
}

type UpdateTaskRequest struct {
	ID    string           `json:"id"`
	Input task.UpdateInput `json:"input"`
}

type TaskResponse struct {
	Task task.Task `json:"task"`
}

type DeleteTaskRequest struct {
	ID string `json:"id"`
}

// SetLaneOrderRequest stores the order of one lane. MovedTaskID and NewStatus
// are set only for SetLaneOrderAndStatus.
type SetLaneOrderRequest struct {
	Order       task.LaneOrder `json:"order"`
	MovedTaskID string         `json:"moved_task_id,omitempty"`
	NewStatus   task.Status    `json:"new_status,omitempty"`
}

type Empty struct{}
