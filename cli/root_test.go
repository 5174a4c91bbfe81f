package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeEngineEnv = "TASKBRIDGE_FAKE_ENGINE"

func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		os.Exit(runFakeEngine())
	}
	os.Exit(m.Run())
}

func runFakeEngine() int {
	var req struct {
		TaskName        string          `json:"taskName"`
		InputParameters json.RawMessage `json:"inputParameters"`
	}
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintln(os.Stderr, "invalid request:", err)
		return 2
	}
	switch req.TaskName {
	case "QueryTaskCatalog":
		fmt.Print(`{"outputParameters":{"TASKS":["Buffer","Clip"]}}`)
	case "QueryTask":
		var query struct {
			TaskName string `json:"Task_Name"`
		}
		_ = json.Unmarshal(req.InputParameters, &query)
		fmt.Printf(`{"outputParameters":{"DEFINITION":{"NAME":%q,"DISPLAY_NAME":"Buffer Raster",`+
			`"DESCRIPTION":"Buffers.","PARAMETERS":{"DISTANCE":{"NAME":"DISTANCE","DISPLAY_NAME":"Distance",`+
			`"DESCRIPTION":"d","TYPE":"DOUBLEARRAY","DIRECTION":"INPUT","REQUIRED":1,"DEFAULT":null}}}}}`,
			query.TaskName)
	case "Fail":
		fmt.Fprint(os.Stderr, "task failed on purpose")
		return 1
	default:
		fmt.Printf(`{"outputParameters":{"TASK":%q,"PARAMS":%s}}`, req.TaskName, req.InputParameters)
	}
	return 0
}

func setupStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKBRIDGE_USER_CONFIG", filepath.Join(dir, "user", "settings.cfg"))
	t.Setenv("TASKBRIDGE_SYSTEM_CONFIG", filepath.Join(dir, "system", "settings.cfg"))
	t.Setenv("TASKBRIDGE_LOG_LEVEL", "disabled")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func setupFakeEngine(t *testing.T) {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)
	_, err = run(t, "config", "set", "--system", "engine", self)
	require.NoError(t, err)
	_, err = run(t, "config", "env", "set", fakeEngineEnv, "1")
	require.NoError(t, err)
}

func TestConfigCommands(t *testing.T) {
	t.Run("Should resolve the user value over the system value", func(t *testing.T) {
		setupStore(t)
		_, err := run(t, "config", "set", "--system", "engine", "/opt/system/engine")
		require.NoError(t, err)
		_, err = run(t, "config", "set", "engine", "/home/me/engine")
		require.NoError(t, err)

		out, err := run(t, "config", "get", "engine")

		require.NoError(t, err)
		assert.Equal(t, "/home/me/engine\n", out)
	})

	t.Run("Should fall back to the system value after removing the user value", func(t *testing.T) {
		setupStore(t)
		_, err := run(t, "config", "set", "--system", "engine", "/opt/system/engine")
		require.NoError(t, err)
		_, err = run(t, "config", "set", "engine", "/home/me/engine")
		require.NoError(t, err)
		_, err = run(t, "config", "remove", "engine")
		require.NoError(t, err)

		out, err := run(t, "config", "get", "engine")

		require.NoError(t, err)
		assert.Equal(t, "/opt/system/engine\n", out)
	})

	t.Run("Should fail to get an unset property", func(t *testing.T) {
		setupStore(t)

		_, err := run(t, "config", "get", "engine")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `"engine"`)
	})

	t.Run("Should list one tier in file order", func(t *testing.T) {
		setupStore(t)
		_, err := run(t, "config", "set", "engine", "/e")
		require.NoError(t, err)
		_, err = run(t, "config", "set", "engine-args", "--fast")
		require.NoError(t, err)

		out, err := run(t, "config", "list")

		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "engine "))
		assert.True(t, strings.HasPrefix(lines[1], "engine-args "))
	})

	t.Run("Should print the settings file paths", func(t *testing.T) {
		dir := setupStore(t)

		out, err := run(t, "config", "paths")

		require.NoError(t, err)
		assert.Contains(t, out, filepath.Join(dir, "user", "settings.cfg"))
		assert.Contains(t, out, filepath.Join(dir, "system", "settings.cfg"))
	})

	t.Run("Should merge environment entries with user precedence", func(t *testing.T) {
		setupStore(t)
		_, err := run(t, "config", "env", "set", "--system", "MODE", "system")
		require.NoError(t, err)
		_, err = run(t, "config", "env", "set", "--system", "ONLY_SYSTEM", "1")
		require.NoError(t, err)
		_, err = run(t, "config", "env", "set", "MODE", "user")
		require.NoError(t, err)

		out, err := run(t, "config", "env", "list")
		require.NoError(t, err)
		assert.Regexp(t, `MODE\s+user`, out)
		assert.Regexp(t, `ONLY_SYSTEM\s+1`, out)

		out, err = run(t, "config", "env", "list", "--system")
		require.NoError(t, err)
		assert.Regexp(t, `MODE\s+system`, out)

		_, err = run(t, "config", "env", "remove", "MODE")
		require.NoError(t, err)
		out, err = run(t, "config", "env", "list")
		require.NoError(t, err)
		assert.Regexp(t, `MODE\s+system`, out)
	})
}

func TestTaskCommands(t *testing.T) {
	t.Run("Should list the engine tasks", func(t *testing.T) {
		setupStore(t)
		setupFakeEngine(t)

		out, err := run(t, "tasks", "ENVI")

		require.NoError(t, err)
		assert.Equal(t, "[\"Buffer\", \"Clip\"]\n", out)
	})

	t.Run("Should print the normalized definition", func(t *testing.T) {
		setupStore(t)
		setupFakeEngine(t)

		out, err := run(t, "describe", "ENVI", "Buffer")

		require.NoError(t, err)
		assert.Contains(t, out, `"display_name": "Buffer Raster"`)
		assert.Contains(t, out, `"type": "DOUBLE"`)
		assert.Contains(t, out, `"direction": "input"`)
		assert.Contains(t, out, `"required": true`)
		assert.NotContains(t, out, "DEFAULT")
	})

	t.Run("Should run a task with inline parameters", func(t *testing.T) {
		setupStore(t)
		setupFakeEngine(t)

		out, err := run(t, "run", "ENVI", "Buffer", "--params", `{"DISTANCE": 12345678901234567}`)

		require.NoError(t, err)
		assert.Contains(t, out, `"TASK": "Buffer"`)
		assert.Contains(t, out, `12345678901234567`)
	})

	t.Run("Should read parameters from a file", func(t *testing.T) {
		dir := setupStore(t)
		setupFakeEngine(t)
		file := filepath.Join(dir, "params.json")
		require.NoError(t, os.WriteFile(file, []byte(`{"INDEX": "NDVI"}`), 0o600))

		out, err := run(t, "run", "ENVI", "SpectralIndex", "--params", "@"+file)

		require.NoError(t, err)
		assert.Contains(t, out, `"INDEX": "NDVI"`)
	})

	t.Run("Should reject parameters that are not an object", func(t *testing.T) {
		setupStore(t)
		setupFakeEngine(t)

		_, err := run(t, "run", "ENVI", "Buffer", "--params", `[1]`)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "--params must be a JSON object")
	})

	t.Run("Should surface the engine error text", func(t *testing.T) {
		setupStore(t)
		setupFakeEngine(t)

		_, err := run(t, "run", "ENVI", "Fail")

		require.Error(t, err)
		assert.Equal(t, "task engine execution failed: task failed on purpose", err.Error())
	})

	t.Run("Should report an unconfigured engine", func(t *testing.T) {
		setupStore(t)

		_, err := run(t, "tasks", "ENVI")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("Should reject a working directory that does not exist", func(t *testing.T) {
		dir := setupStore(t)
		setupFakeEngine(t)

		_, err := run(t, "tasks", "ENVI", "--cwd", filepath.Join(dir, "missing"))

		require.Error(t, err)
	})
}

func TestRootCommand(t *testing.T) {
	t.Run("Should print the version", func(t *testing.T) {
		out, err := run(t, "--version")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "taskbridge version "))
	})
}
