// Package config implements the commands that read and edit the user and
// system settings files.
package config

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/compozy/taskbridge/cli/helpers"
	"github.com/compozy/taskbridge/engine/settings"
	"github.com/compozy/taskbridge/pkg/logger"
)

const systemFlag = "system"

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit task engine settings",
		Long: `Read and edit the task engine settings stored in the user and system
settings files. Properties resolve from the user file first, then the system file.`,
	}
	cmd.AddCommand(
		NewGetCommand(),
		NewSetCommand(),
		NewRemoveCommand(),
		NewListCommand(),
		NewPathsCommand(),
		NewEnvCommand(),
	)
	return cmd
}

// NewGetCommand creates the config get subcommand
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <property>",
		Short: "Print the resolved value of a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.AppFromContext(cmd.Context())
			if err != nil {
				return err
			}
			value, err := app.Resolver.Property(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

// NewSetCommand creates the config set subcommand
func NewSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <property> <value>",
		Short: "Set a property in the user or system settings",
		Example: `  taskbridge config set engine /opt/engine/bin/taskengine
  taskbridge config set --system engine-timeout 10m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, tier, err := appAndTier(cmd)
			if err != nil {
				return err
			}
			if err := app.Resolver.SetProperty(args[0], args[1], tier); err != nil {
				return err
			}
			logger.FromContext(cmd.Context()).Debug("Property set", "property", args[0], "tier", tier)
			return nil
		},
	}
	addSystemFlag(cmd)
	return cmd
}

// NewRemoveCommand creates the config remove subcommand
func NewRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <property>",
		Short: "Remove a property from the user or system settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, tier, err := appAndTier(cmd)
			if err != nil {
				return err
			}
			return app.Resolver.RemoveProperty(args[0], tier)
		},
	}
	addSystemFlag(cmd)
	return cmd
}

// NewListCommand creates the config list subcommand
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the properties of one settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, tier, err := appAndTier(cmd)
			if err != nil {
				return err
			}
			entries, err := app.Resolver.Properties(tier)
			if err != nil {
				return err
			}
			return writeEntries(cmd, entries)
		},
	}
	addSystemFlag(cmd)
	return cmd
}

// NewPathsCommand creates the config paths subcommand
func NewPathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the location of the settings files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := helpers.AppFromContext(cmd.Context())
			if err != nil {
				return err
			}
			paths := app.Resolver.Paths()
			return writeEntries(cmd, []settings.Entry{
				{Key: string(settings.TierUser), Value: paths.User},
				{Key: string(settings.TierSystem), Value: paths.System},
			})
		},
	}
}

func addSystemFlag(cmd *cobra.Command) {
	cmd.Flags().Bool(systemFlag, false, "Use the system settings file instead of the user one")
}

func appAndTier(cmd *cobra.Command) (*helpers.App, settings.Tier, error) {
	app, err := helpers.AppFromContext(cmd.Context())
	if err != nil {
		return nil, "", err
	}
	system, err := cmd.Flags().GetBool(systemFlag)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get %s flag: %w", systemFlag, err)
	}
	return app, settings.TierFor(system), nil
}

func writeEntries(cmd *cobra.Command, entries []settings.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, entry := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", entry.Key, entry.Value); err != nil {
			return err
		}
	}
	return w.Flush()
}
