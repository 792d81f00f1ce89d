package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/facilitybot/core/config"
	coredatabase "github.com/m3rciful/facilitybot/core/database"
)

func noLogger(coreconfig.LoggingConfig) error { return nil }

func TestRunMemoryDriverSkipsDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverMemory},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, errors.New("unexpected")
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if connected || res.DB != nil {
		t.Fatalf("memory driver must not connect")
	}
}

func TestRunPropagatesFailures(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	if err == nil {
		t.Fatalf("expected nil config error")
	}
	wantErr := errors.New("refused")
	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverPostgres},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, wantErr
		},
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
}

func TestRunMigratesWithDriverFiles(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var gotDriver string
	migrated := false
	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return db, nil
		},
		Migrations: func(driver string) (fs.FS, error) {
			gotDriver = driver
			return fstest.MapFS{"000001_init.up.sql": {Data: []byte("SELECT 1;")}}, nil
		},
		Migrate: func(_ context.Context, _ coredatabase.Config, src fs.FS) error {
			_, err := fs.Stat(src, "000001_init.up.sql")
			migrated = err == nil
			return nil
		},
	})
	_ = db.Close()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotDriver != coredatabase.DriverSQLite || !migrated {
		t.Fatalf("driver=%q migrated=%v", gotDriver, migrated)
	}
}

func TestRunSeeders(t *testing.T) {
	var order []int
	seed := func(n int) Seeder[*[]int] {
		return SeederFunc[*[]int](func(_ context.Context, s *[]int) error {
			*s = append(*s, n)
			return nil
		})
	}
	if err := RunSeeders(context.Background(), &order, seed(1), seed(2)); err != nil {
		t.Fatalf("RunSeeders: %v", err)
	}
	if len(order) != 2 || order[0] != 1 {
		t.Fatalf("order = %v", order)
	}
	failing := SeederFunc[*[]int](func(context.Context, *[]int) error { return errors.New("boom") })
	if err := RunSeeders(context.Background(), &order, seed(3), failing, seed(4)); err == nil {
		t.Fatalf("expected failure")
	}
	if len(order) != 3 {
		t.Fatalf("seeding continued after failure: %v", order)
	}
}
