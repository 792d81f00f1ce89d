package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/facilitybot/core/logger"
)

// Seeder loads reference data into a storage implementation.
type Seeder[S any] interface {
	Seed(ctx context.Context, storage S) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc[S any] func(ctx context.Context, storage S) error

// Seed executes the underlying function.
func (f SeederFunc[S]) Seed(ctx context.Context, storage S) error {
	return f(ctx, storage)
}

// RunSeeders applies seeders in order and stops at the first failure.
func RunSeeders[S any](ctx context.Context, storage S, seeders ...Seeder[S]) error {
	start := time.Now()
	for i, s := range seeders {
		if s == nil {
			continue
		}
		if err := s.Seed(ctx, storage); err != nil {
			logger.Error(ctx, "db.seed", "summary",
				slog.String("status", "fail"),
				slog.Int("index", i),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
	}
	logger.Info(ctx, "db.seed", "summary",
		slog.String("status", "ok"),
		slog.Int("count", len(seeders)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
