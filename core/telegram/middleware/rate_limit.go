package middleware

import (
	"log/slog"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/facilitybot/core/config"
	"github.com/m3rciful/facilitybot/core/logger"
	tghelpers "github.com/m3rciful/facilitybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// pruneThreshold is the tracked-user count above which stale entries are dropped.
const pruneThreshold = 1024

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds (coreconfig.UpdateCallback,
	// coreconfig.UpdateMessage) that bypass the limit.
	Exclude map[string]struct{}
	// OnLimited replies to a dropped update. Callback queries must be
	// answered here or the client keeps a spinner on the button.
	OnLimited tele.HandlerFunc
	Now       func() time.Time
}

type limiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSeen map[int64]time.Time
}

// allow records an update from userID at ts and reports whether it is
// outside the interval of the previous one.
func (l *limiter) allow(userID int64, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSeen[userID]; ok && ts.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = ts
	if len(l.lastSeen) > pruneThreshold {
		for id, seen := range l.lastSeen {
			if ts.Sub(seen) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
	}
	return true
}

// RateLimitMiddleware enforces a minimum interval between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &limiter{interval: opts.Interval, lastSeen: make(map[int64]time.Time)}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if lim.allow(user.ID, now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
				slog.String("status", "fail"),
				slog.Int64("user_id", user.ID),
				slog.String("update", kind),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	}
	return "other"
}
