// Package core defines the capabilities every task engine exposes to callers.
package core

import (
	"context"

	"github.com/compozy/taskbridge/engine/bridge"
	"github.com/compozy/taskbridge/engine/taskdef"
)

// Engine is a named task engine.
type Engine interface {
	Name() string
	// Task returns a handle; the engine is not contacted until the handle is used.
	Task(name string) Task
	// Tasks lists the names of every task the engine provides.
	Tasks(ctx context.Context) ([]string, error)
}

// Task is one task of an Engine.
type Task interface {
	// URI is "engine:task".
	URI() string
	Name(ctx context.Context) (string, error)
	DisplayName(ctx context.Context) (string, error)
	Description(ctx context.Context) (string, error)
	Parameters(ctx context.Context) ([]taskdef.ParameterDescriptor, error)
	Descriptor(ctx context.Context) (*taskdef.TaskDescriptor, error)
	// Execute runs the task. An empty cwd falls back to the task's default.
	Execute(ctx context.Context, params map[string]any, cwd string) (*bridge.Result, error)
}
