// Package task implements the commands that talk to a task engine.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/taskbridge/cli/helpers"
	"github.com/compozy/taskbridge/engine/core"
	"github.com/compozy/taskbridge/engine/taskengine"
)

const cwdFlag = "cwd"

// NewTasksCommand creates the tasks command
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks <engine>",
		Short: "List the tasks an engine provides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFor(cmd, args[0])
			if err != nil {
				return err
			}
			tasks, err := engine.Tasks(cmd.Context())
			if err != nil {
				return err
			}
			return helpers.WriteJSON(cmd.OutOrStdout(), tasks)
		},
	}
	addCwdFlag(cmd)
	return cmd
}

// NewDescribeCommand creates the describe command
func NewDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <engine> <task>",
		Short: "Print the normalized definition of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFor(cmd, args[0])
			if err != nil {
				return err
			}
			definition, err := engine.Lookup(args[1]).Definition(cmd.Context())
			if err != nil {
				return err
			}
			return helpers.WriteJSON(cmd.OutOrStdout(), definition)
		},
	}
	addCwdFlag(cmd)
	return cmd
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <engine> <task>",
		Short: "Run a task and print the engine response",
		Example: `  taskbridge run ENVI SpectralIndex --params '{"INDEX": "NDVI"}'
  taskbridge run ENVI Buffer --params @params.json --cwd ./data`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFor(cmd, args[0])
			if err != nil {
				return err
			}
			params, err := readParams(cmd)
			if err != nil {
				return err
			}
			result, err := engine.Task(args[1]).Execute(cmd.Context(), params, "")
			if err != nil {
				return err
			}
			return helpers.WriteJSON(cmd.OutOrStdout(), result.Raw())
		},
	}
	addCwdFlag(cmd)
	cmd.Flags().String("params", "", "Input parameters as a JSON object, or @file to read them from a file")
	return cmd
}

func addCwdFlag(cmd *cobra.Command) {
	cmd.Flags().String(cwdFlag, "", "Working directory of the engine process")
}

func engineFor(cmd *cobra.Command, name string) (*taskengine.Engine, error) {
	app, err := helpers.AppFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	cwd, err := cmd.Flags().GetString(cwdFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s flag: %w", cwdFlag, err)
	}
	cwd, err = core.ResolveWorkingDir(cwd)
	if err != nil {
		return nil, err
	}
	return app.Engine(name, cwd), nil
}

func readParams(cmd *cobra.Command) (map[string]any, error) {
	raw, err := cmd.Flags().GetString("params")
	if err != nil {
		return nil, fmt.Errorf("failed to get params flag: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	data, err := helpers.ReadInput(raw)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var params map[string]any
	if err := decoder.Decode(&params); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}
	return params, nil
}
