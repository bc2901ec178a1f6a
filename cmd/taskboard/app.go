package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/kazz187/taskboard/internal/boardsync"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/remote"
	"github.com/kazz187/taskboard/internal/taskstore"
	"github.com/kazz187/taskboard/pkg/clog"
)

// App wires the board for one CLI invocation. Everything it needs is passed
// in explicitly; Close must be called before exit so that pending
// persistence calls finish.
type App struct {
	env    *config.Env
	store  *taskstore.Store
	coord  *boardsync.Coordinator
	bus    *eventbus.Bus
	render *Renderer
}

func newApp(env *config.Env, out io.Writer) *App {
	opts := []remote.Option{
		remote.WithTimeout(env.RequestTimeout),
		remote.WithTokenSource(remote.StaticToken(env.APIToken)),
	}
	if env.RefreshToken != "" {
		refresher := remote.NewTokenRefresher(env.APIURL, env.RefreshToken, &http.Client{Timeout: env.RequestTimeout})
		opts = append(opts, remote.WithRefresher(refresher))
	}
	client := remote.NewClient(env.APIURL, opts...)
	bus := eventbus.New()
	coord := boardsync.New(client, bus, boardsync.WithTimeout(env.RequestTimeout))
	return &App{
		env:    env,
		store:  taskstore.New(client, coord, bus),
		coord:  coord,
		bus:    bus,
		render: NewRenderer(out, env.Output, env.Color),
	}
}

func (a *App) Close() {
	a.coord.Close()
}

func setupLogger(env *config.Env, w io.Writer) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(w, clog.WithLevel(level), clog.WithColor(env.Color))
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func newContext() context.Context {
	return clog.ContextWithSlog(context.Background())
}
