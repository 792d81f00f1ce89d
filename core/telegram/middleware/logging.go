package middleware

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/facilitybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware stores the request context with rid and update metadata
// and logs a sampled receipt line per update. It runs both as a global
// middleware and inside route wrappers; only the first pass does the work.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); ok {
			return next(c)
		}

		ctx := tghelpers.NewContext(c)
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c, c.Update())...)
		}
		return next(c)
	}
}

// receiptAttrs describes the update. Free text may be an occupant's appeal,
// so only commands are logged verbatim.
func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		text := c.Text()
		if strings.HasPrefix(text, "/") {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 256)))
		} else if text != "" {
			attrs = append(attrs, slog.Int("text_len", utf8.RuneCountInString(text)))
		}
	}
	return attrs
}
