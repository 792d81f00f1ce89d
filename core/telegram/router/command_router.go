package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/facilitybot/core/logger"
	tg "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/core/telegram/commands"
	"github.com/m3rciful/facilitybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	IsAdmin       func(ctx context.Context, userID int64) bool
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		IsAdmin:  opts.IsAdmin,
		OnReject: opts.OnAdminReject,
	})

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := commandHandler(normalizeHandlerName(cmd), def.Handler)
		if def.AdminOnly {
			h = adminOnly(h)
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if name := commands.Name(alias); name != "" {
				routes = append(routes, tg.Route{Endpoint: name, Handler: h})
			}
		}
	}

	logger.Info(context.Background(), "tg.wire", "routes.complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func commandHandler(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return handleWithSummary(c, name, startNow(), func() error { return h(c) })
	}
}
