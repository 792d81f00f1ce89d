package cli

import (
	"context"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/facilitybot/core/cmd"
	"github.com/m3rciful/facilitybot/internal/app"
)

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(*configPath)
		},
	}
}

func runBot(configPath string) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        configPath,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(ctx, cfg.(*app.Config))
		},
	})
}
