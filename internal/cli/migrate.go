package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/facilitybot/core/cmd"
	coredatabase "github.com/m3rciful/facilitybot/core/database"
	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/app"
	"github.com/m3rciful/facilitybot/migrations"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrateUp(cmd, *configPath)
		},
	})
	return migrate
}

func migrateUp(cmd *cobra.Command, configPath string) error {
	cfg, err := app.LoadConfig(corecmd.ResolveConfigPath(configPath, "", defaultConfigPath))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Database.Driver == coredatabase.DriverMemory {
		return fmt.Errorf("migrate: driver %q has no schema", cfg.Database.Driver)
	}
	if err := logger.InitLogger(cfg.Logging); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()
	cfg.LogEnvFileError(cmd.Context())

	src, err := migrations.FS(cfg.Database.Driver)
	if err != nil {
		return err
	}
	if err := coredatabase.RunMigrations(cmd.Context(), cfg.Database, src); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrate up: ok")
	return nil
}
