package helpers

import (
	"context"
	"fmt"

	"github.com/compozy/taskbridge/engine/bridge"
	"github.com/compozy/taskbridge/engine/settings"
	"github.com/compozy/taskbridge/engine/taskengine"
	"github.com/compozy/taskbridge/pkg/config"
)

type contextKey string

const appKey contextKey = "app"

// App holds the services a command needs. It is built once per invocation
// by the root command.
type App struct {
	Config   *config.Config
	Resolver *settings.Resolver
	Bridge   *bridge.Bridge
}

// NewApp wires the resolver and the bridge from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	paths, err := settings.DefaultPaths()
	if err != nil {
		if cfg.Store.UserFile == "" || cfg.Store.SystemFile == "" {
			return nil, fmt.Errorf("failed to locate settings files: %w", err)
		}
	}
	paths = paths.WithOverrides(cfg.Store.UserFile, cfg.Store.SystemFile)
	resolver := settings.NewResolver(paths)
	return &App{
		Config:   cfg,
		Resolver: resolver,
		Bridge: bridge.New(
			resolver,
			bridge.WithStdoutLimit(cfg.Bridge.StdoutLimit),
			bridge.WithStderrLimit(cfg.Bridge.StderrLimit),
		),
	}, nil
}

// Engine returns a task engine handle bound to this app's bridge.
func (a *App) Engine(name, cwd string) *taskengine.Engine {
	return taskengine.New(
		name,
		a.Bridge,
		taskengine.WithWorkingDir(cwd),
		taskengine.WithTaskCacheSize(a.Config.Bridge.TaskCacheSize),
	)
}

func ContextWithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

func AppFromContext(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return app, nil
}
