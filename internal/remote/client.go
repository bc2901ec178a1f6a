package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

type clientConfig struct {
	httpClient   connect.HTTPClient
	tokenSource  TokenSource
	refresher    Refresher
	timeout      time.Duration
	interceptors []connect.Interceptor
}

type Option func(*clientConfig)

func WithHTTPClient(c connect.HTTPClient) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

func WithTokenSource(s TokenSource) Option {
	return func(cfg *clientConfig) {
		cfg.tokenSource = s
	}
}

func WithRefresher(r Refresher) Option {
	return func(cfg *clientConfig) {
		cfg.refresher = r
	}
}

// WithTimeout sets the HTTP client timeout when no HTTP client is given.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.timeout = d
	}
}

func WithInterceptors(interceptors ...connect.Interceptor) Option {
	return func(cfg *clientConfig) {
		cfg.interceptors = append(cfg.interceptors, interceptors...)
	}
}

// Client talks to the task service. It implements task.Repository.
type Client struct {
	listTasks             *connect.Client[ListTasksRequest, ListTasksResponse]
	createTask            *connect.Client[CreateTaskRequest, TaskResponse]
	updateTask            *connect.Client[UpdateTaskRequest, TaskResponse]
	deleteTask            *connect.Client[DeleteTaskRequest, Empty]
	setLaneOrder          *connect.Client[SetLaneOrderRequest, Empty]
	setLaneOrderAndStatus *connect.Client[SetLaneOrderRequest, Empty]
}

var _ task.Repository = (*Client)(nil)

// NewClient creates a client for the service rooted at baseURL, for example
// "http://localhost:8000/api".
func NewClient(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	interceptors := append([]connect.Interceptor{
		clog.NewSlogConnectUnaryInterceptor(),
		newAuthInterceptor(cfg.tokenSource, cfg.refresher),
	}, cfg.interceptors...)
	clientOpts := []connect.ClientOption{
		connect.WithCodec(Codec()),
		connect.WithInterceptors(interceptors...),
	}

	return &Client{
		listTasks: connect.NewClient[ListTasksRequest, ListTasksResponse](
			cfg.httpClient, baseURL+ListTasksProcedure, clientOpts...),
		createTask: connect.NewClient[CreateTaskRequest, TaskResponse](
			cfg.httpClient, baseURL+CreateTaskProcedure, clientOpts...),
		updateTask: connect.NewClient[UpdateTaskRequest, TaskResponse](
			cfg.httpClient, baseURL+UpdateTaskProcedure, clientOpts...),
		deleteTask: connect.NewClient[DeleteTaskRequest, Empty](
			cfg.httpClient, baseURL+DeleteTaskProcedure, clientOpts...),
		setLaneOrder: connect.NewClient[SetLaneOrderRequest, Empty](
			cfg.httpClient, baseURL+SetLaneOrderProcedure, clientOpts...),
		setLaneOrderAndStatus: connect.NewClient[SetLaneOrderRequest, Empty](
			cfg.httpClient, baseURL+SetLaneOrderAndStatusProcedure, clientOpts...),
	}
}

func (c *Client) ListTasks(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	resp, err := c.listTasks.CallUnary(ctx, connect.NewRequest(&ListTasksRequest{Filter: filter}))
	if err != nil {
		return nil, cerr.WrapRemoteError("list tasks", err)
	}
	if resp.Msg.Tasks == nil {
		return []task.Task{}, nil
	}
	return resp.Msg.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, in task.CreateInput) (task.Task, error) {
	resp, err := c.createTask.CallUnary(ctx, connect.NewRequest(&CreateTaskRequest{Input: in}))
	if err != nil {
		return task.Task{}, cerr.WrapRemoteError("create task", err)
	}
	return resp.Msg.Task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, in task.UpdateInput) (task.Task, error) {
	resp, err := c.updateTask.CallUnary(ctx, connect.NewRequest(&UpdateTaskRequest{ID: id, Input: in}))
	if err != nil {
		return task.Task{}, cerr.WrapRemoteError("update task", err)
	}
	return resp.Msg.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.deleteTask.CallUnary(ctx, connect.NewRequest(&DeleteTaskRequest{ID: id}))
	return cerr.WrapRemoteError("delete task", err)
}

func (c *Client) SetLaneOrder(ctx context.Context, order task.LaneOrder) error {
	_, err := c.setLaneOrder.CallUnary(ctx, connect.NewRequest(&SetLaneOrderRequest{Order: order}))
	return cerr.WrapRemoteError("set lane order", err)
}

func (c *Client) SetLaneOrderAndStatus(ctx context.Context, order task.LaneOrder, movedTaskID string, newStatus task.Status) error {
	_, err := c.setLaneOrderAndStatus.CallUnary(ctx, connect.NewRequest(&SetLaneOrderRequest{
		Order:       order,
		MovedTaskID: movedTaskID,
		NewStatus:   newStatus,
	}))
	return cerr.WrapRemoteError("set lane order and status", err)
}
