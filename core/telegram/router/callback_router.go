package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/core/telegram/callbacks"
	"github.com/m3rciful/facilitybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises callback routing.
type CallbackOptions struct {
	// Decode maps raw callback data to a registry key. When nil the key is
	// taken from callbacks.ParseCallbackData.
	Decode   func(data string) (string, bool)
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Handlers may answer the query themselves; otherwise an empty answer is sent
// after they return so the client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		defer func() { _ = callbacks.Respond(c, nil) }()

		key, found := callbackKey(cb, opts.Decode)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		var cbHandler tele.HandlerFunc
		if found {
			cbHandler, found = reg.GetCallback(key)
		}
		if !found || cbHandler == nil {
			cbHandler = opts.NotFound
			if cbHandler == nil {
				cbHandler = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("reason", "not_found"))
			if cbHandler == nil {
				logHandlerSummary(c, name, start, "skip", nil, extras...)
				return nil
			}
		}
		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

func callbackKey(cb *tele.Callback, decode func(string) (string, bool)) (string, bool) {
	if decode != nil {
		return decode(callbacks.Data(cb))
	}
	key, _ := callbacks.ParseCallbackData(cb)
	return key, key != ""
}
