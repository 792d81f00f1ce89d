// Package bootstrap initializes shared infrastructure: logging, the database
// connection, migrations and reference data.
package bootstrap

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/facilitybot/core/config"
	coredatabase "github.com/m3rciful/facilitybot/core/database"
	"github.com/m3rciful/facilitybot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Migrations returns the migration files for a driver.
	Migrations func(driver string) (fs.FS, error)

	LoggerInit func(coreconfig.LoggingConfig) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config, fs.FS) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil for the memory driver.
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database and applies migrations.
// The memory driver skips the database steps.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config.Logging); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if opts.Database.Driver == coredatabase.DriverMemory {
		return &Result{}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	if opts.Migrations != nil {
		src, err := opts.Migrations(opts.Database.Driver)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, opts.Database, src); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	return &Result{DB: db}, nil
}
