package taskengine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tidwall/pretty"

	"github.com/compozy/taskbridge/engine/bridge"
	"github.com/compozy/taskbridge/engine/core"
	"github.com/compozy/taskbridge/engine/taskdef"
	"github.com/compozy/taskbridge/pkg/logger"
	"github.com/compozy/taskbridge/pkg/ordered"
)

var _ core.Task = (*Task)(nil)

// Task is a handle on one engine task. Its definition is queried on first
// use and kept for the lifetime of the handle.
type Task struct {
	engine *Engine
	name   string
	cwd    string

	mu         sync.Mutex
	definition *ordered.Object
	descriptor *taskdef.TaskDescriptor
}

func newTask(engine *Engine, name string) *Task {
	return &Task{engine: engine, name: name, cwd: engine.cwd}
}

func (t *Task) URI() string {
	return t.engine.name + ":" + t.name
}

func (t *Task) Engine() *Engine {
	return t.engine
}

func (t *Task) String() string {
	return fmt.Sprintf("Task (%s)", t.URI())
}

// Definition returns the normalized definition with the engine's key order.
func (t *Task) Definition(ctx context.Context) (*ordered.Object, error) {
	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t.definition, nil
}

func (t *Task) Descriptor(ctx context.Context) (*taskdef.TaskDescriptor, error) {
	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t.descriptor, nil
}

func (t *Task) Name(ctx context.Context) (string, error) {
	desc, err := t.Descriptor(ctx)
	if err != nil {
		return "", err
	}
	return desc.Name, nil
}

func (t *Task) DisplayName(ctx context.Context) (string, error) {
	desc, err := t.Descriptor(ctx)
	if err != nil {
		return "", err
	}
	return desc.DisplayName, nil
}

func (t *Task) Description(ctx context.Context) (string, error) {
	desc, err := t.Descriptor(ctx)
	if err != nil {
		return "", err
	}
	return desc.Description, nil
}

func (t *Task) Parameters(ctx context.Context) ([]taskdef.ParameterDescriptor, error) {
	desc, err := t.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(desc.Parameters), nil
}

// Execute runs the task with params. cwd wins over the task's default
// working directory; when both are empty the caller's is used.
func (t *Task) Execute(ctx context.Context, params map[string]any, cwd string) (*bridge.Result, error) {
	if cwd == "" {
		cwd = t.cwd
	}
	return t.engine.executor.Execute(ctx, bridge.TaskRequest(t.name, params), t.engine.name, cwd)
}

// Summary renders the task's name, display name, description and
// parameters for humans.
func (t *Task) Summary(ctx context.Context) (string, error) {
	desc, err := t.Descriptor(ctx)
	if err != nil {
		return "", err
	}
	params, err := json.Marshal(desc.Parameters)
	if err != nil {
		return "", fmt.Errorf("failed to render parameters: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", desc.Name)
	fmt.Fprintf(&b, "display_name: %s\n", desc.DisplayName)
	fmt.Fprintf(&b, "description: %s\n", desc.Description)
	fmt.Fprintf(&b, "parameters: %s", pretty.PrettyOptions(params, &pretty.Options{Width: 80, Indent: "  "}))
	return b.String(), nil
}

func (t *Task) load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.descriptor != nil {
		return nil
	}
	result, err := t.engine.executor.Execute(ctx, bridge.QueryTaskRequest(t.name), t.engine.name, t.cwd)
	if err != nil {
		return fmt.Errorf("failed to query task %s: %w", t.URI(), err)
	}
	raw, ok := ordered.ObjectAt(result.Root(), "outputParameters", "DEFINITION")
	if !ok {
		return fmt.Errorf("%w: outputParameters.DEFINITION is missing for %s", ErrInvalidResponse, t.URI())
	}
	definition, err := taskdef.Normalize(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize task %s: %w", t.URI(), err)
	}
	descriptor, err := taskdef.Decode(definition, t.URI())
	if err != nil {
		return fmt.Errorf("failed to decode task %s: %w", t.URI(), err)
	}
	t.definition = definition
	t.descriptor = descriptor
	logger.FromContext(ctx).Debug(
		"Task definition loaded",
		"task", t.URI(),
		"parameters", len(descriptor.Parameters),
	)
	return nil
}
