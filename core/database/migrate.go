package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/facilitybot/core/logger"
)

// RunMigrations applies all up migrations found at the root of src.
// cfg must be normalized; the memory driver has nothing to migrate.
func RunMigrations(ctx context.Context, cfg Config, src fs.FS) error {
	if cfg.Driver == DriverMemory {
		logger.Info(ctx, "db.migrate", "summary", slog.String("status", "skip"), slog.String("driver", cfg.Driver))
		return nil
	}
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.ConnString(), 30*time.Second); err != nil {
			logger.Error(ctx, "db.migrate", "db.migrate",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	files := listMigrationFiles(src)
	preview, truncated := logger.SummarizeStrings(files, 6)
	attrs := []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(files)),
	}
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	logger.Debug(ctx, "db.migrate", "resolve", attrs...)

	source, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		logger.Error(ctx, "db.migrate", "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "close", slog.String("err", errors.Join(srcErr, dbErr).Error()))
		}
	}()

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info(ctx, "db.migrate", "summary",
			slog.String("status", "ok"),
			slog.Uint64("from_ver", uint64(fromVer)),
			slog.Uint64("to_ver", uint64(fromVer)),
			slog.Int("files", 0),
			slog.Duration("duration_ms", took),
		)
		return nil
	default:
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration_ms", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		previewApplied, truncatedApplied := logger.SummarizeStrings(applied, 6)
		attrs := []slog.Attr{slog.Int("files_total", len(applied)), slog.String("files_preview", previewApplied)}
		if truncatedApplied {
			attrs = append(attrs, slog.Bool("files_truncated", true))
		}
		logger.Debug(ctx, "db.migrate", "apply", attrs...)
	}

	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", countApplied(files, uint64(fromVer), uint64(toVer))),
		slog.Duration("duration_ms", took),
	)
	return nil
}

func listMigrationFiles(src fs.FS) []string {
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func countApplied(files []string, from, to uint64) int {
	return len(selectApplied(files, from, to))
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
