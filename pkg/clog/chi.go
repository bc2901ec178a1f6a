package clog

import (
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const healthService = "grpc.health.v1.Health"

// SlogChiMiddleware opens an attribute bag for each request and logs the
// request once it has been served. Successful health checks log at debug.
func SlogChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := ContextWithSlog(r.Context())
			attrs := requestAttributes(r)
			AddAttributes(ctx, attrs)
			next.ServeHTTP(ww, r.WithContext(ctx))

			AddAttributes(ctx, map[string]any{
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
			level := HTTPStatusToLevel(ww.Status()).Slog()
			if attrs["service"] == healthService && level < slog.LevelWarn {
				level = slog.LevelDebug
			}
			slog.Log(ctx, level, http.StatusText(ww.Status()))
		})
	}
}

// requestAttributes names a connect call by service and procedure, as in
// /api/taskboard.v1.TaskService/ListTasks. Other requests keep their path.
func requestAttributes(r *http.Request) map[string]any {
	attrs := map[string]any{"method": r.Method}
	dir, procedure := path.Split(r.URL.Path)
	service := path.Base(dir)
	if procedure == "" || !strings.Contains(service, ".") {
		attrs["path"] = r.URL.Path
		return attrs
	}
	attrs["service"] = service
	attrs["procedure"] = procedure
	return attrs
}
