package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/facilitybot/core/config"
	"github.com/m3rciful/facilitybot/core/logger"
	tghelpers "github.com/m3rciful/facilitybot/core/telegram/helpers"
	tgsender "github.com/m3rciful/facilitybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	// Routes receives the registry and bot once both exist.
	Routes func(reg *Registry) []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	pollerOpts := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	poller := BuildPoller(pollerOpts)

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(HTTPClientOptions{LongPoll: pollerOpts.LongPollTimeout()}),
		OnError: func(err error, c tele.Context) {
			errCtx := ctx
			if c != nil {
				if stored, ok := tghelpers.ContextFrom(c); ok {
					errCtx = stored
				}
			}
			logger.Error(errCtx, "tg", "bot.error", slog.String("err", err.Error()))
		},
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	tghelpers.SetDispatcher(dispatcher)
	defer func() {
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.String("allowed_updates", strings.Join(p.AllowedUpdates, ",")),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
		if !opts.DisableWebhookCleanup {
			// A webhook left over from a previous deployment blocks getUpdates.
			if err := bot.RemoveWebhook(false); err != nil {
				logger.Warn(ctx, "tg", "delete_webhook", slog.String("status", "fail"), slog.String("err", err.Error()))
			} else {
				logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
			}
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
		logger.Debug(ctx, "tg.wire", "middleware.use", slog.String("name", mw.Name))
	}

	if opts.Routes != nil {
		for _, route := range opts.Routes(reg) {
			if route.Endpoint == nil || route.Handler == nil {
				continue
			}
			bot.Handle(route.Endpoint, route.Handler)
		}
	}

	InitBotCommands(ctx, bot, reg, cfg.Telegram.AdminIDs)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()
	logger.Info(ctx, "tg", "bot.started", slog.String("username", bot.Me.Username))

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}
	logger.Info(context.Background(), "tg", "bot.stopped")

	if opts.OnStop != nil {
		if err := opts.OnStop(context.Background(), rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
