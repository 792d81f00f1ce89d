// Package bot connects the Telegram transport to the conversation machine:
// it decodes updates into flow events and renders the returned replies.
package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/facilitybot/core/logger"
	tg "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/core/telegram/callbacks"
	"github.com/m3rciful/facilitybot/core/telegram/commands"
	tghelpers "github.com/m3rciful/facilitybot/core/telegram/helpers"
	"github.com/m3rciful/facilitybot/core/telegram/router"
	"github.com/m3rciful/facilitybot/core/telegram/ui"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

const (
	msgTextOnly        = "Please send a text message."
	msgUnsupported     = "Unsupported action."
	msgAccessDenied    = "Access denied."
	msgPrivateChatOnly = "Please message me in a private chat."
	msgSlowDown        = "Too many requests, please wait a moment."
)

// callbackKinds are the events reachable from inline buttons.
var callbackKinds = []flow.Kind{
	flow.KindRoomAppeals,
	flow.KindRoomQR,
	flow.KindRoomDelete,
	flow.KindConfirmDelete,
	flow.KindCancelDelete,
	flow.KindRoomNotify,
	flow.KindNotifyDone,
	flow.KindCancel,
}

// Handler feeds telebot updates into a flow.Machine.
type Handler struct {
	machine *flow.Machine
	roles   flow.RoleChecker
	out     transport
}

var (
	_ router.FSM          = (*Handler)(nil)
	_ ui.FallbackProvider = (*Handler)(nil)
)

// New returns a Handler delivering replies through the Telegram helpers.
func New(machine *flow.Machine, roles flow.RoleChecker) *Handler {
	return &Handler{machine: machine, roles: roles, out: telebotTransport{}}
}

// Register adds commands, callbacks and the text fallback to reg.
func (h *Handler) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: h.onMessage, Description: "Start the bot"})
	reg.RegisterCommand("/get_id", commands.Command{Handler: h.onMessage, Description: "Show your Telegram ID"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: h.onMessage, Description: "Cancel the current action"})
	reg.RegisterCommand("/add_admin", commands.Command{
		Handler:     h.onMessage,
		Description: "Grant admin rights",
		Usage:       "<telegram_id>",
		AdminOnly:   true,
	})

	var errs []error
	for _, kind := range callbackKinds {
		errs = append(errs, reg.RegisterCallback(kind.String(), h.onCallback))
	}
	reg.SetTextFallback(h.onMessage)
	reg.SetCallbackNotFound(h.UnknownCallback())
	return errors.Join(errs...)
}

// Routes builds the telebot routes for a registry filled by Register.
func (h *Handler) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin:       h.IsAdmin,
		OnAdminReject: h.reject,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		Decode:   DecodeCallbackKey,
		NotFound: h.UnknownCallback(),
	}))
	return append(routes, router.TextRoutes(h, reg, router.TextFallbacks(h))...)
}

// DecodeCallbackKey maps callback data to the registry key of its event kind.
func DecodeCallbackKey(data string) (string, bool) {
	ev, ok := flow.DecodeToken(0, data)
	if !ok {
		return "", false
	}
	return ev.Kind.String(), true
}

// IsAdmin reports whether userID holds the admin role. Lookup failures deny access.
func (h *Handler) IsAdmin(ctx context.Context, userID int64) bool {
	ok, err := h.roles.HasRole(ctx, userID, domain.RoleAdmin)
	if err != nil {
		logger.Error(ctx, "tg", "access.check",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return ok
}

// InProgress implements router.FSM.
func (h *Handler) InProgress(userID int64) bool {
	return h.machine.InProgress(userID)
}

// ManagerHandler implements router.FSM.
func (h *Handler) ManagerHandler(c tele.Context) error {
	return h.onMessage(c)
}

// UnknownText implements ui.FallbackProvider.
func (h *Handler) UnknownText() tele.HandlerFunc {
	return h.onMessage
}

// UnknownMedia implements ui.FallbackProvider.
func (h *Handler) UnknownMedia() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.out.send(c, msgTextOnly, nil)
	}
}

// UnknownCallback implements ui.FallbackProvider.
func (h *Handler) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.out.notice(c, msgUnsupported)
	}
}

// Throttled answers an update dropped by the rate limiter. Callback queries
// get a toast; messages are dropped silently.
func (h *Handler) Throttled(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return h.out.notice(c, msgSlowDown)
}

func (h *Handler) reject(c tele.Context) error {
	return h.out.send(c, msgAccessDenied, nil)
}

func (h *Handler) onMessage(c tele.Context) error {
	user := c.Sender()
	msg := c.Message()
	if user == nil || msg == nil {
		return nil
	}
	if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
		return h.out.send(c, msgPrivateChatOnly, nil)
	}
	return h.handle(c, flow.DecodeMessage(user.ID, msg.Text))
}

func (h *Handler) onCallback(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ev, ok := flow.DecodeToken(user.ID, callbacks.Data(c.Callback()))
	if !ok {
		return h.out.notice(c, msgUnsupported)
	}
	return h.handle(c, ev)
}

// handle runs ev through the machine and delivers every reply, even when the
// machine reports a failure alongside its apology.
func (h *Handler) handle(c tele.Context, ev flow.Event) error {
	ctx := tghelpers.BuildContext(c)
	replies, err := h.machine.Handle(ctx, ev)
	return errors.Join(err, h.render(ctx, c, replies))
}
