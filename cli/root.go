package cli

import (
	"github.com/spf13/cobra"

	configcmd "github.com/compozy/taskbridge/cli/cmd/config"
	taskcmd "github.com/compozy/taskbridge/cli/cmd/task"
	"github.com/compozy/taskbridge/cli/helpers"
	"github.com/compozy/taskbridge/pkg/config"
	"github.com/compozy/taskbridge/pkg/logger"
	"github.com/compozy/taskbridge/pkg/version"
)

// RootCmd builds the taskbridge command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskbridge",
		Short: "Discover and run tasks of an external task engine",
		Long: `taskbridge runs tasks provided by an external task engine executable.
The engine is located through the "engine" property of the user or system
settings file (see "taskbridge config").`,
		Version:           version.Get().String(),
		SilenceUsage:      true,
		PersistentPreRunE: setupApp,
	}
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source location in logs")
	root.AddCommand(
		configcmd.NewConfigCommand(),
		taskcmd.NewTasksCommand(),
		taskcmd.NewDescribeCommand(),
		taskcmd.NewRunCommand(),
	)
	return root
}

func setupApp(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	flags := make(map[string]any)
	if cmd.Flags().Changed("log-level") {
		flags["log.level"] = logLevel
	}
	if cmd.Flags().Changed("log-json") {
		flags["log.json"] = logJSON
	}
	if cmd.Flags().Changed("log-source") {
		flags["log.source"] = logSource
	}
	cfg, err := config.NewService().Load(ctx, config.NewCLIProvider(flags))
	if err != nil {
		return err
	}
	log := logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source, cmd.ErrOrStderr())
	app, err := helpers.NewApp(cfg)
	if err != nil {
		return err
	}
	log.Debug("Settings files resolved", "user", app.Resolver.Paths().User, "system", app.Resolver.Paths().System)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = helpers.ContextWithApp(ctx, app)
	cmd.SetContext(ctx)
	return nil
}
