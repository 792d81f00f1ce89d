// Package app wires configuration, storage, the conversation machine and the
// Telegram transport into a runnable bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/facilitybot/core/bootstrap"
	coredatabase "github.com/m3rciful/facilitybot/core/database"
	"github.com/m3rciful/facilitybot/core/logger"
	coretelegram "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/internal/bot"
	"github.com/m3rciful/facilitybot/internal/deeplink"
	"github.com/m3rciful/facilitybot/internal/flow"
	"github.com/m3rciful/facilitybot/internal/storage"
	"github.com/m3rciful/facilitybot/internal/storage/memstore"
	"github.com/m3rciful/facilitybot/internal/storage/sqlstore"
	"github.com/m3rciful/facilitybot/migrations"
)

// App holds the wired components of a running bot.
type App struct {
	cfg     *Config
	store   storage.Store
	closer  func() error
	links   *deeplink.Builder
	machine *flow.Machine
	handler *bot.Handler
}

// Bootstrap initializes logging and storage, seeds reference data and builds
// the conversation machine.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	cfg.LogEnvFileError(ctx)
	if err != nil {
		return nil, err
	}

	var (
		store  storage.Store
		closer = func() error { return nil }
	)
	if res.DB != nil {
		s := sqlstore.New(res.DB)
		store, closer = s, s.Close
	} else {
		store = memstore.New()
		logger.Warn(ctx, "app", "storage", slog.String("driver", coredatabase.DriverMemory), slog.String("note", "data is lost on restart"))
	}

	a, err := New(cfg, store)
	if err != nil {
		_ = closer()
		return nil, err
	}
	a.closer = closer

	if err := bootstrap.RunSeeders(ctx, store, RoleSeeder(), AdminSeeder(cfg.Telegram.AdminIDs)); err != nil {
		_ = closer()
		return nil, err
	}
	return a, nil
}

// New builds an App over an already prepared store.
func New(cfg *Config, store storage.Store) (*App, error) {
	links := deeplink.NewBuilder(cfg.Bot.LinkHost, cfg.Telegram.BotUsername)
	machine, err := flow.New(flow.Options{
		Store:        store,
		Links:        links,
		QR:           deeplink.PNGEncoder{Size: cfg.Bot.QRSize},
		AppealsLimit: cfg.Bot.AppealsLimit,
		Location:     cfg.Bot.Location(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return &App{
		cfg:     cfg,
		store:   store,
		closer:  func() error { return nil },
		links:   links,
		machine: machine,
		handler: bot.New(machine, store),
	}, nil
}

// Close releases the storage connection.
func (a *App) Close() error {
	return a.closer()
}

// TelegramRunOptions builds the transport configuration for the bot.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handler.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.handler.Throttled),
		Routes:      a.handler.Routes,
		OnStart:     a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if a.links.Username() == "" && rt.Bot != nil && rt.Bot.Me != nil {
		a.links.SetUsername(rt.Bot.Me.Username)
	}
	if a.links.Username() == "" {
		return fmt.Errorf("app: bot username unknown; set telegram.bot_username")
	}
	if ttl := a.cfg.Bot.SessionIdleTTL; ttl > 0 {
		go a.sweepSessions(ctx, ttl, time.Now)
	}
	return nil
}

// sweepSessions drops conversations idle for longer than ttl until ctx ends.
func (a *App) sweepSessions(ctx context.Context, ttl time.Duration, now func() time.Time) {
	ticker := time.NewTicker(sweepInterval(ttl))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.machine.Sessions().Sweep(now().Add(-ttl)); n > 0 {
				logger.Info(ctx, "flow", "session.sweep",
					slog.String("status", "ok"),
					slog.Int("count", n),
					slog.Int("sessions", a.machine.Sessions().Len()),
				)
			}
		}
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, time.Second), 10*time.Minute)
}
