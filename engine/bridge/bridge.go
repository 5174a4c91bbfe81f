// Package bridge runs one task engine request as a child process.
//
// The request is written as JSON to the engine's standard input and the
// engine answers with a JSON document on standard output. Each call spawns a
// fresh process and blocks until it exits.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xhit/go-str2duration/v2"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/taskbridge/engine/settings"
	"github.com/compozy/taskbridge/pkg/logger"
)

var validate = validator.New()

// pipeDrainDelay bounds how long Wait keeps reading pipes after a cancelled
// engine is killed, in case a grandchild still holds them open.
const pipeDrainDelay = 2 * time.Second

// ConfigSource resolves the engine settings. *settings.Resolver implements it.
type ConfigSource interface {
	Property(name string) (string, error)
	EnvironmentOverlay() (map[string]string, error)
}

type Bridge struct {
	source  ConfigSource
	config  *Config
	metrics *bridgeMetrics
	now     func() time.Time
}

func New(source ConfigSource, opts ...Option) *Bridge {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.Environ == nil {
		config.Environ = os.Environ
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Bridge{
		source:  source,
		config:  config,
		metrics: newBridgeMetrics(config.MeterProvider),
		now:     config.Now,
	}
}

// invocation is everything resolved from configuration for one run.
type invocation struct {
	path    string
	args    []string
	env     []string
	overlay []string
	dir     string
	timeout time.Duration
}

// Execute runs req against engineName with the working directory cwd; an
// empty cwd keeps the caller's working directory.
func (b *Bridge) Execute(ctx context.Context, req *Request, engineName, cwd string) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request must not be nil", ErrInvalidRequest)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	log := logger.FromContext(ctx).With("engine", engineName, "task", req.TaskName)
	inv, err := b.prepare(engineName, cwd)
	if err != nil {
		b.metrics.recordError(ctx, engineName, errorKindConfig)
		if errors.Is(err, ErrEngineNotFound) {
			b.metrics.recordExecution(ctx, engineName, outcomeNotFound, 0)
		}
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %w", ErrInvalidRequest, err)
	}
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}
	log.Debug(
		"Spawning task engine",
		"path", inv.path,
		"args", inv.args,
		"cwd", inv.dir,
		"overlay_keys", inv.overlay,
		"timeout", inv.timeout,
	)
	start := b.now()
	result, err := b.run(ctx, log, engineName, inv, payload)
	duration := b.now().Sub(start)
	switch {
	case err == nil:
		b.metrics.recordExecution(ctx, engineName, outcomeSuccess, duration)
	case ctx.Err() != nil:
		b.metrics.recordExecution(ctx, engineName, outcomeTimeout, duration)
	default:
		b.metrics.recordExecution(ctx, engineName, outcomeError, duration)
	}
	if err != nil {
		log.Warn("Task engine request failed", "error", err, "duration_ms", duration.Milliseconds())
		return nil, err
	}
	log.Debug("Task engine request completed", "duration_ms", duration.Milliseconds())
	return result, nil
}

func (b *Bridge) prepare(engineName, cwd string) (*invocation, error) {
	path, err := b.source.Property(settings.PropertyEngine)
	if errors.Is(err, settings.ErrConfigMissing) {
		return nil, &NotFoundError{
			Reason: fmt.Sprintf("not configured, please set the %q configuration property", settings.PropertyEngine),
		}
	}
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &NotFoundError{
			Path:   path,
			Reason: fmt.Sprintf("please verify the %q configuration property", settings.PropertyEngine),
		}
	}
	if info.IsDir() {
		return nil, &NotFoundError{Path: path, Reason: "path is a directory"}
	}
	args := []string{engineName}
	extra, err := b.optionalProperty(settings.PropertyEngineArgs)
	if err != nil {
		return nil, err
	}
	if extra != "" {
		args = append(args, extra)
	}
	timeout, err := b.timeout()
	if err != nil {
		return nil, err
	}
	overlay, err := b.source.EnvironmentOverlay()
	if err != nil {
		return nil, err
	}
	inv := &invocation{
		path:    path,
		args:    args,
		dir:     cwd,
		timeout: timeout,
	}
	// A nil env makes the child inherit the caller's environment unchanged.
	if len(overlay) > 0 {
		inv.env = mergeEnvironment(b.config.Environ(), overlay)
		inv.overlay = slices.Sorted(maps.Keys(overlay))
	}
	return inv, nil
}

func (b *Bridge) optionalProperty(name string) (string, error) {
	value, err := b.source.Property(name)
	if errors.Is(err, settings.ErrConfigMissing) {
		return "", nil
	}
	return value, err
}

func (b *Bridge) timeout() (time.Duration, error) {
	raw, err := b.optionalProperty(settings.PropertyEngineTimeout)
	if err != nil || strings.TrimSpace(raw) == "" {
		return 0, err
	}
	timeout, err := str2duration.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %q configuration property %q: %w", settings.PropertyEngineTimeout, raw, err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("invalid %q configuration property %q: must not be negative", settings.PropertyEngineTimeout, raw)
	}
	return timeout, nil
}

func (b *Bridge) run(
	ctx context.Context,
	log logger.Logger,
	engineName string,
	inv *invocation,
	payload []byte,
) (*Result, error) {
	cmd := exec.CommandContext(ctx, inv.path, inv.args...)
	cmd.Dir = inv.dir
	cmd.Env = inv.env
	cmd.WaitDelay = pipeDrainDelay
	configureCommand(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.metrics.recordError(ctx, engineName, errorKindStdin)
		return nil, &ExecutionError{ExitCode: -1, Message: "failed to open engine stdin", Err: err}
	}
	stdout := newLimitedBuffer(b.config.StdoutLimit)
	stderr := newLimitedBuffer(b.config.StderrLimit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		b.metrics.recordError(ctx, engineName, errorKindStart)
		return nil, &ExecutionError{ExitCode: -1, Message: "failed to start task engine: " + err.Error(), Err: err}
	}
	var writer errgroup.Group
	writer.Go(func() error {
		defer stdin.Close()
		_, err := stdin.Write(payload)
		return err
	})
	waitErr := cmd.Wait()
	if err := writer.Wait(); err != nil && !isClosedPipe(err) {
		b.metrics.recordError(ctx, engineName, errorKindStdin)
		log.Debug("Failed to write request to task engine", "error", err)
	}
	return b.classify(ctx, log, engineName, waitErr, stdout, stderr)
}

func (b *Bridge) classify(
	ctx context.Context,
	log logger.Logger,
	engineName string,
	waitErr error,
	stdout *limitedBuffer,
	stderr *limitedBuffer,
) (*Result, error) {
	if waitErr != nil && ctx.Err() != nil {
		b.metrics.recordError(ctx, engineName, errorKindTimeout)
		b.metrics.recordExit(ctx, engineName, processStatusSignal, -1)
		return nil, &ExecutionError{
			ExitCode: -1,
			Message:  "task engine was stopped: " + ctx.Err().Error(),
			Err:      ctx.Err(),
		}
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		status := processStatusExit
		message := stderr.String()
		if code < 0 {
			status = processStatusSignal
		}
		if message == "" {
			if code < 0 {
				message = "task engine " + exitErr.ProcessState.String()
			} else {
				message = fmt.Sprintf("exited with code %d", code)
			}
		}
		b.metrics.recordExit(ctx, engineName, status, code)
		b.metrics.recordError(ctx, engineName, errorKindExit)
		log.Debug("Task engine exited with failure", "exit_code", code, "stderr_truncated", stderr.Truncated())
		return nil, &ExecutionError{ExitCode: code, Message: message}
	}
	if waitErr != nil {
		b.metrics.recordError(ctx, engineName, errorKindWait)
		return nil, &ExecutionError{ExitCode: -1, Message: "failed waiting for task engine: " + waitErr.Error(), Err: waitErr}
	}
	b.metrics.recordExit(ctx, engineName, processStatusExit, 0)
	b.metrics.recordOutputSize(ctx, engineName, stdout.Len())
	result, err := newResult(stdout.Bytes())
	if err != nil {
		b.metrics.recordError(ctx, engineName, errorKindParse)
		message := "failed to parse task engine output: " + err.Error()
		if stdout.Truncated() {
			message += fmt.Sprintf(" (output truncated at %d of %d bytes)", stdout.Len(), stdout.Written())
		}
		return nil, &ExecutionError{ExitCode: 0, Message: message, Err: err}
	}
	return result, nil
}

func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EPIPE)
}
