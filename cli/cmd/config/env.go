package config

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/compozy/taskbridge/cli/helpers"
	"github.com/compozy/taskbridge/engine/settings"
)

// NewEnvCommand creates the config env command
func NewEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environment variables passed to the task engine",
	}
	cmd.AddCommand(
		newEnvListCommand(),
		newEnvSetCommand(),
		newEnvRemoveCommand(),
	)
	return cmd
}

func newEnvListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the environment overlay",
		Long: `List the merged environment overlay. With --user or --system only the
entries of that settings file are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := helpers.AppFromContext(cmd.Context())
			if err != nil {
				return err
			}
			system, _ := cmd.Flags().GetBool(systemFlag)
			user, _ := cmd.Flags().GetBool("user")
			if system || user {
				entries, err := app.Resolver.Environment(settings.TierFor(system))
				if err != nil {
					return err
				}
				return writeEntries(cmd, entries)
			}
			overlay, err := app.Resolver.EnvironmentOverlay()
			if err != nil {
				return err
			}
			entries := make([]settings.Entry, 0, len(overlay))
			for _, key := range slices.Sorted(maps.Keys(overlay)) {
				entries = append(entries, settings.Entry{Key: key, Value: overlay[key]})
			}
			return writeEntries(cmd, entries)
		},
	}
	addSystemFlag(cmd)
	cmd.Flags().Bool("user", false, "Only list the user settings file")
	cmd.MarkFlagsMutuallyExclusive("user", systemFlag)
	return cmd
}

func newEnvSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <KEY> <VALUE>",
		Short: "Set an environment variable for the task engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, tier, err := appAndTier(cmd)
			if err != nil {
				return err
			}
			return app.Resolver.SetEnvironment(args[0], args[1], tier)
		},
	}
	addSystemFlag(cmd)
	return cmd
}

func newEnvRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <KEY>",
		Short: "Remove an environment variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, tier, err := appAndTier(cmd)
			if err != nil {
				return err
			}
			return app.Resolver.RemoveEnvironment(args[0], tier)
		},
	}
	addSystemFlag(cmd)
	return cmd
}
