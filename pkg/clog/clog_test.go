package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "ignored", 1)
	assert.Nil(t, GetAttributes(ctx))

	ctx = ContextWithSlog(ctx)
	AddAttribute(ctx, TaskAttributeKey, "A")
	AddAttributes(ctx, map[string]any{
		LaneAttributeKey: "todo",
		"nested":         map[string]any{"a": 1},
	})
	AddAttributes(ctx, map[string]any{"nested": map[string]any{"b": 2}})

	assert.Equal(t, "A", GetAttribute[string](ctx, TaskAttributeKey))
	assert.Equal(t, 0, GetAttribute[int](ctx, TaskAttributeKey))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, GetAttributes(ctx)["nested"])

	err := errors.New("boom")
	AddError(ctx, err)
	AddStack(ctx, "stack")
	assert.Equal(t, err, GetError(ctx))
	assert.Equal(t, "stack", GetStack(ctx))
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false))))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{
		TaskAttributeKey: "A",
		LaneAttributeKey: "todo",
		"revision":       "01J",
	})
	AddError(ctx, errors.New("backend down"))
	logger.ErrorContext(ctx, "failed to persist board order", "code", "unavailable")

	out := buf.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ERROR todo A [unavailable] \"failed to persist board order\" \"backend down\"")
	assert.Equal(t, "    revision=01J", lines[1])
}

func TestTextHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelWarn)))
	logger.Info("quiet")
	assert.Empty(t, buf.String())
	logger.Warn("loud")
	assert.Contains(t, buf.String(), "WARN \"loud\"")
}

func TestLevels(t *testing.T) {
	assert.Equal(t, LevelInfo, ConnectCodeToLevel(connect.CodeInvalidArgument))
	assert.Equal(t, LevelWarn, ConnectCodeToLevel(connect.CodeDeadlineExceeded))
	assert.Equal(t, LevelError, ConnectCodeToLevel(connect.CodeUnavailable))
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(http.StatusOK))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(http.StatusUnauthorized))
	assert.Equal(t, LevelError, HTTPStatusToLevel(http.StatusBadGateway))
	assert.Equal(t, slog.LevelWarn, LevelWarn.Slog())
}

func TestSlogChiMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   map[string]any
	}{
		{
			name:   "procedure",
			target: "/api/taskboard.v1.TaskService/SetLaneOrder",
			want:   map[string]any{"service": "taskboard.v1.TaskService", "procedure": "SetLaneOrder"},
		},
		{
			name:   "plain path",
			target: "/api/refresh",
			want:   map[string]any{"path": "/api/refresh"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen map[string]any
			h := SlogChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetAttributes(r.Context())
				w.WriteHeader(http.StatusTeapot)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.target, nil))

			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.Equal(t, http.MethodPost, seen["method"])
			for k, v := range tt.want {
				assert.Equal(t, v, seen[k], k)
			}
		})
	}
}
