package remotetest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskboard/internal/remote"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

const apiPrefix = "/api"

type ServerOption func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every call.
func WithToken(token string) ServerOption {
	return func(s *Server) {
		s.token = token
	}
}

// WithRefreshToken serves RefreshPath, which answers refreshToken with the
// token currently accepted.
func WithRefreshToken(refreshToken string) ServerOption {
	return func(s *Server) {
		s.refreshToken = refreshToken
	}
}

// Server serves a Backend over the task service procedures.
type Server struct {
	*httptest.Server
	Backend *Backend

	mu           sync.RWMutex
	token        string
	refreshToken string
}

// NewServer starts serving b. Close it when done.
func NewServer(b *Backend, opts ...ServerOption) *Server {
	s := &Server{Backend: b}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(h2c.NewHandler(s.router(), &http2.Server{}))
	return s
}

// BaseURL is the URL to pass to remote.NewClient.
func (s *Server) BaseURL() string {
	return s.URL + apiPrefix
}

// RotateToken makes the server accept only token from now on.
func (s *Server) RotateToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Server) router() http.Handler {
	handlerOpts := []connect.HandlerOption{
		connect.WithCodec(remote.Codec()),
		connect.WithInterceptors(
			clog.NewSlogConnectUnaryInterceptor(),
			cerr.NewConvertConnectErrorInterceptor(),
		),
	}

	r := chi.NewRouter()
	r.Use(clog.SlogChiMiddleware())
	r.Route(apiPrefix, func(r chi.Router) {
		if s.refreshToken != "" {
			r.Post(remote.RefreshPath, s.refresh)
		}
		r.Group(func(r chi.Router) {
			r.Use(s.tokenMiddleware)
			r.Handle(remote.ListTasksProcedure, connect.NewUnaryHandler(remote.ListTasksProcedure, s.listTasks, handlerOpts...))
			r.Handle(remote.CreateTaskProcedure, connect.NewUnaryHandler(remote.CreateTaskProcedure, s.createTask, handlerOpts...))
			r.Handle(remote.UpdateTaskProcedure, connect.NewUnaryHandler(remote.UpdateTaskProcedure, s.updateTask, handlerOpts...))
			r.Handle(remote.DeleteTaskProcedure, connect.NewUnaryHandler(remote.DeleteTaskProcedure, s.deleteTask, handlerOpts...))
			r.Handle(remote.SetLaneOrderProcedure, connect.NewUnaryHandler(remote.SetLaneOrderProcedure, s.setLaneOrder, handlerOpts...))
			r.Handle(remote.SetLaneOrderAndStatusProcedure, connect.NewUnaryHandler(remote.SetLaneOrderAndStatusProcedure, s.setLaneOrderAndStatus, handlerOpts...))
		})
	})
	path, health := grpchealth.NewHandler(grpchealth.NewStaticChecker(remote.ServiceName))
	r.Handle(path+"*", health)
	return r
}

func (s *Server) tokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		want := s.token
		s.mu.RUnlock()
		if want != "" {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got != want {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req remote.RefreshRequest
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid refresh request", http.StatusBadRequest)
		return
	}
	if req.RefreshToken != s.refreshToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	if err := sonic.ConfigStd.NewEncoder(w).Encode(remote.RefreshResponse{Token: token}); err != nil {
		slog.ErrorContext(r.Context(), "failed to write refresh response", "error", err)
	}
}

func (s *Server) listTasks(ctx context.Context, req *connect.Request[remote.ListTasksRequest]) (*connect.Response[remote.ListTasksResponse], error) {
	tasks, err := s.Backend.ListTasks(ctx, req.Msg.Filter)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&remote.ListTasksResponse{Tasks: tasks}), nil
}

func (s *Server) createTask(ctx context.Context, req *connect.Request[remote.CreateTaskRequest]) (*connect.Response[remote.TaskResponse], error) {
	t, err := s.Backend.CreateTask(ctx, req.Msg.Input)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&remote.TaskResponse{Task: t}), nil
}

func (s *Server) updateTask(ctx context.Context, req *connect.Request[remote.UpdateTaskRequest]) (*connect.Response[remote.TaskResponse], error) {
	t, err := s.Backend.UpdateTask(ctx, req.Msg.ID, req.Msg.Input)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&remote.TaskResponse{Task: t}), nil
}

func (s *Server) deleteTask(ctx context.Context, req *connect.Request[remote.DeleteTaskRequest]) (*connect.Response[remote.Empty], error) {
	if err := s.Backend.DeleteTask(ctx, req.Msg.ID); err != nil {
		return nil, err
	}
	return connect.NewResponse(&remote.Empty{}), nil
}

func (s *Server) setLaneOrder(ctx context.Context, req *connect.Request[remote.SetLaneOrderRequest]) (*connect.Response[remote.Empty], error) {
	if err := s.Backend.SetLaneOrder(ctx, req.Msg.Order); err != nil {
		return nil, err
	}
	return connect.NewResponse(&remote.Empty{}), nil
}

func (s *Server) setLaneOrderAndStatus(ctx context.Context, req *connect.Request[remote.SetLaneOrderRequest]) (*connect.Response[remote.Empty], error) {
	if err := s.Backend.SetLaneOrderAndStatus(ctx, req.Msg.Order, req.Msg.MovedTaskID, req.Msg.NewStatus); err != nil {
		return nil, err
	}
	return connect.NewResponse(&remote.Empty{}), nil
}
