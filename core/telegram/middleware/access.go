package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/facilitybot/core/logger"
	tghelpers "github.com/m3rciful/facilitybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// IsAdmin reports whether the user may run admin-only handlers.
	// A nil predicate disables the check.
	IsAdmin  func(ctx context.Context, userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only admins reach downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.IsAdmin == nil {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			ctx := tghelpers.BuildContext(c)
			if user == nil || !opts.IsAdmin(ctx, user.ID) {
				var userID int64
				if user != nil {
					userID = user.ID
				}
				logger.Warn(ctx, "tg", "access.denied",
					slog.String("status", "fail"),
					slog.Int64("user_id", userID),
					slog.String("handler", logger.HandlerFrom(ctx)),
				)
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
