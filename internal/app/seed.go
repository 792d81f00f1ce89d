package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/facilitybot/core/bootstrap"
	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

// RoleSeeder creates the built-in roles.
func RoleSeeder() bootstrap.Seeder[storage.Store] {
	return bootstrap.SeederFunc[storage.Store](func(ctx context.Context, st storage.Store) error {
		for _, name := range []string{domain.RoleAdmin, domain.RoleEmployee} {
			if _, err := st.EnsureRole(ctx, name); err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
		}
		return nil
	})
}

// AdminSeeder registers the configured admins and grants them the admin role.
func AdminSeeder(adminIDs []int64) bootstrap.Seeder[storage.Store] {
	return bootstrap.SeederFunc[storage.Store](func(ctx context.Context, st storage.Store) error {
		for _, id := range adminIDs {
			if _, _, err := st.EnsureUser(ctx, id); err != nil {
				return fmt.Errorf("seed admin %d: %w", id, err)
			}
			if err := st.GrantRole(ctx, id, domain.RoleAdmin); err != nil {
				return fmt.Errorf("seed admin %d: %w", id, err)
			}
			logger.Debug(ctx, "db.seed", "admin", slog.Int64("user_id", id))
		}
		return nil
	})
}
