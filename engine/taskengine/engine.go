// Package taskengine implements core.Engine and core.Task for engines reached
// through the subprocess bridge.
package taskengine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/compozy/taskbridge/engine/bridge"
	"github.com/compozy/taskbridge/engine/core"
	"github.com/compozy/taskbridge/pkg/logger"
)

const (
	DefaultTaskCacheSize = 128
	catalogKey           = "catalog"
)

// ErrInvalidResponse is returned when an engine answers with an unexpected shape.
var ErrInvalidResponse = errors.New("unexpected task engine response")

// Executor sends one request to a named engine. *bridge.Bridge implements it.
type Executor interface {
	Execute(ctx context.Context, req *bridge.Request, engineName, cwd string) (*bridge.Result, error)
}

type Config struct {
	// WorkingDir is the default working directory of the engine and its tasks.
	WorkingDir string
	// TaskCacheSize bounds the number of task handles kept; 0 disables reuse.
	TaskCacheSize int
}

type Option func(*Config)

func WithWorkingDir(dir string) Option {
	return func(c *Config) {
		c.WorkingDir = dir
	}
}

func WithTaskCacheSize(size int) Option {
	return func(c *Config) {
		c.TaskCacheSize = size
	}
}

var _ core.Engine = (*Engine)(nil)

// Engine binds an engine name and a default working directory. The task
// catalog is queried once per Engine and kept until InvalidateTasks.
type Engine struct {
	name     string
	cwd      string
	executor Executor
	handles  *lru.Cache[string, *Task]

	catalogMu sync.RWMutex
	catalog   []string
	loaded    bool
	// generation is bumped by InvalidateTasks; a query started before the
	// bump must not store its result.
	generation uint64
	sfGroup    singleflight.Group
}

func New(name string, executor Executor, opts ...Option) *Engine {
	cfg := &Config{TaskCacheSize: DefaultTaskCacheSize}
	for _, opt := range opts {
		opt(cfg)
	}
	e := &Engine{
		name:     name,
		cwd:      cfg.WorkingDir,
		executor: executor,
	}
	if cfg.TaskCacheSize > 0 {
		if cache, err := lru.New[string, *Task](cfg.TaskCacheSize); err == nil {
			e.handles = cache
		}
	}
	return e
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) WorkingDir() string {
	return e.cwd
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine (%s)", e.name)
}

func (e *Engine) Task(name string) core.Task {
	return e.Lookup(name)
}

// Lookup returns the task handle for name. Handles are reused while they
// stay in the cache, so their definition memo is shared.
func (e *Engine) Lookup(name string) *Task {
	if e.handles == nil {
		return newTask(e, name)
	}
	if task, ok := e.handles.Get(name); ok {
		return task
	}
	task := newTask(e, name)
	if prev, ok, _ := e.handles.PeekOrAdd(name, task); ok {
		return prev
	}
	return task
}

// Tasks returns the engine's task catalog. Concurrent first calls share a
// single QueryTaskCatalog request.
func (e *Engine) Tasks(ctx context.Context) ([]string, error) {
	if tasks, ok := e.cachedCatalog(); ok {
		return tasks, nil
	}
	v, err, _ := e.sfGroup.Do(catalogKey, func() (any, error) {
		e.catalogMu.RLock()
		if e.loaded {
			tasks := slices.Clone(e.catalog)
			e.catalogMu.RUnlock()
			return tasks, nil
		}
		generation := e.generation
		e.catalogMu.RUnlock()
		tasks, err := e.queryCatalog(ctx)
		if err != nil {
			return nil, err
		}
		e.catalogMu.Lock()
		if e.generation == generation {
			e.catalog = tasks
			e.loaded = true
		}
		e.catalogMu.Unlock()
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	tasks, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("cached value is not []string")
	}
	return slices.Clone(tasks), nil
}

// InvalidateTasks drops the memoized catalog so the next Tasks call queries
// the engine again.
func (e *Engine) InvalidateTasks() {
	e.catalogMu.Lock()
	e.catalog = nil
	e.loaded = false
	e.generation++
	e.catalogMu.Unlock()
}

func (e *Engine) cachedCatalog() ([]string, bool) {
	e.catalogMu.RLock()
	defer e.catalogMu.RUnlock()
	if !e.loaded {
		return nil, false
	}
	return slices.Clone(e.catalog), true
}

func (e *Engine) queryCatalog(ctx context.Context) ([]string, error) {
	result, err := e.executor.Execute(ctx, bridge.CatalogRequest(), e.name, e.cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to query task catalog of %s: %w", e.name, err)
	}
	value := result.Get("outputParameters.TASKS")
	if !value.IsArray() {
		return nil, fmt.Errorf("%w: outputParameters.TASKS is not a list", ErrInvalidResponse)
	}
	tasks := make([]string, 0, len(value.Array()))
	var invalid error
	value.ForEach(func(_, item gjson.Result) bool {
		if item.Type != gjson.String {
			invalid = fmt.Errorf("%w: task name %s is not a string", ErrInvalidResponse, item.Raw)
			return false
		}
		tasks = append(tasks, item.String())
		return true
	})
	if invalid != nil {
		return nil, invalid
	}
	logger.FromContext(ctx).Debug("Task catalog loaded", "engine", e.name, "count", len(tasks))
	return tasks, nil
}
