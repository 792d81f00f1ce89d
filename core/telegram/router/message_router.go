package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/core/telegram/commands"
	"github.com/m3rciful/facilitybot/core/telegram/middleware"
	"github.com/m3rciful/facilitybot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

var startNow = time.Now

// FSM is the conversation owner consulted before command lookup.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextFallbacks takes the text and media fallbacks from p.
func TextFallbacks(p ui.FallbackProvider) TextOptions {
	if p == nil {
		return TextOptions{}
	}
	return TextOptions{UnknownText: p.UnknownText(), UnknownMedia: p.UnknownMedia()}
}

var mediaEndpoints = []string{
	tele.OnPhoto, tele.OnDocument, tele.OnSticker, tele.OnVoice,
	tele.OnVideo, tele.OnAudio, tele.OnAnimation, tele.OnLocation, tele.OnContact,
}

// TextRoutes builds handlers for plain text and non-text messages. Text goes
// to the FSM while a conversation is in progress, then to a matching command,
// then to the registry fallback.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := startNow()

		if fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}
		if reg != nil {
			if key, cmd, ok := lookupSlashCommand(reg, c.Text()); ok {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}
		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := startNow()
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", nil)
		return nil
	}

	routes := []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}}
	wrapped := middleware.RecoverMiddleware(middleware.LoggerMiddleware(mediaHandler))
	for _, ep := range mediaEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrapped})
	}
	return routes
}

// lookupSlashCommand resolves "/name ..." text that telebot did not route,
// such as an alias. Plain words never match a command.
func lookupSlashCommand(reg *tg.Registry, text string) (string, commands.Command, bool) {
	if !strings.HasPrefix(strings.TrimSpace(text), "/") {
		return "", commands.Command{}, false
	}
	key, cmd, ok := reg.LookupCommand(text)
	return key, cmd, ok && cmd.Handler != nil
}
