package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Task names understood by every engine.
const (
	TaskQueryCatalog = "QueryTaskCatalog"
	TaskQueryTask    = "QueryTask"
)

var (
	// ErrEngineNotFound means the engine executable is not configured or does not exist.
	ErrEngineNotFound = errors.New("task engine not found")
	// ErrEngineExecutionFailed means the engine ran and rejected the request.
	ErrEngineExecutionFailed = errors.New("task engine execution failed")
	// ErrInvalidRequest is returned before anything is spawned.
	ErrInvalidRequest = errors.New("invalid task engine request")
)

// NotFoundError explains why the engine executable could not be used.
type NotFoundError struct {
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("task engine executable not found: %s", e.Reason)
	}
	return fmt.Sprintf("task engine executable %q not found: %s", e.Path, e.Reason)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrEngineNotFound
}

// ExecutionError carries the engine's own failure message: its stderr text
// when there was any, "exited with code N" otherwise.
type ExecutionError struct {
	ExitCode int
	Message  string
	Err      error
}

func (e *ExecutionError) Error() string {
	return "task engine execution failed: " + strings.TrimSpace(e.Message)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrEngineExecutionFailed
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Request is written to the engine's standard input.
type Request struct {
	TaskName string `validate:"required"`
	// InputParameters is omitted from the wire when nil.
	InputParameters map[string]any
}

func (r *Request) MarshalJSON() ([]byte, error) {
	if r.InputParameters == nil {
		return json.Marshal(struct {
			TaskName string `json:"taskName"`
		}{r.TaskName})
	}
	return json.Marshal(struct {
		TaskName        string         `json:"taskName"`
		InputParameters map[string]any `json:"inputParameters"`
	}{r.TaskName, r.InputParameters})
}

// CatalogRequest asks the engine for the names of every task it knows.
func CatalogRequest() *Request {
	return &Request{TaskName: TaskQueryCatalog}
}

// QueryTaskRequest asks the engine for the definition of one task.
func QueryTaskRequest(taskName string) *Request {
	return &Request{
		TaskName:        TaskQueryTask,
		InputParameters: map[string]any{"Task_Name": taskName},
	}
}

// TaskRequest invokes a user task. A nil parameter map is sent as {}.
func TaskRequest(taskName string, params map[string]any) *Request {
	if params == nil {
		params = map[string]any{}
	}
	return &Request{TaskName: taskName, InputParameters: params}
}
