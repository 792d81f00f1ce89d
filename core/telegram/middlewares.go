package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/facilitybot/core/config"
	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the global chain: panic recovery, request
// logging, the optional per-user rate limit and outbound counters.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   rateLimitExclusions(cfg.RateLimit.ExcludeUpdates),
				OnLimited: onLimited,
			}),
		})
	}
	return append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}

func rateLimitExclusions(kinds []string) map[string]struct{} {
	ex := make(map[string]struct{}, len(kinds))
	for _, raw := range kinds {
		kind := strings.ToLower(strings.TrimSpace(raw))
		switch kind {
		case coreconfig.UpdateCallback, coreconfig.UpdateMessage:
			ex[kind] = struct{}{}
		case "":
		default:
			logger.Warn(context.Background(), "tg.wire", "rate_limit.exclude.skip", slog.String("name", raw))
		}
	}
	return ex
}
