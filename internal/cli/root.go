// Package cli defines the facilitybot command line.
package cli

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// NewRootCommand builds the command tree. Running the root without a
// subcommand starts the bot.
func NewRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "facilitybot",
		Short:         "Telegram bot collecting facility issue reports via room QR codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (default $CONFIG_PATH or "+defaultConfigPath+")")

	root.AddCommand(
		newRunCommand(&configPath),
		newMigrateCommand(&configPath),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}
