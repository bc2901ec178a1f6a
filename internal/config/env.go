package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
	Color    bool   `envconfig:"COLOR" default:"true"`
	Output   string `envconfig:"OUTPUT" default:"text"`
}

type RemoteEnv struct {
	APIURL         string        `envconfig:"API_URL" default:"http://localhost:8000/api"`
	APIToken       string        `envconfig:"API_TOKEN"`
	RefreshToken   string        `envconfig:"REFRESH_TOKEN"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

type Env struct {
	BaseEnv
	RemoteEnv
}

const namespace = "TASKBOARD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid %s_OUTPUT %q: must be text, json or yaml", namespace, e.Output)
	}
	if e.RequestTimeout <= 0 {
		return fmt.Errorf("invalid %s_REQUEST_TIMEOUT %s: must be positive", namespace, e.RequestTimeout)
	}
	e.APIURL = strings.TrimSuffix(e.APIURL, "/")
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}
