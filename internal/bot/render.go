package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/facilitybot/core/telegram/helpers"
	"github.com/m3rciful/facilitybot/core/telegram/keyboard"
	"github.com/m3rciful/facilitybot/core/telegram/middleware"
	"github.com/m3rciful/facilitybot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// transport performs the Telegram calls needed to deliver replies.
type transport interface {
	send(c tele.Context, text string, opts *tele.SendOptions) error
	sendTo(c tele.Context, userID int64, text string, opts *tele.SendOptions) error
	sendPhoto(c tele.Context, png []byte, caption string) error
	edit(c tele.Context, text string, opts *tele.SendOptions) error
	editMarkup(c tele.Context, markup *tele.ReplyMarkup) error
	notice(c tele.Context, text string) error
}

func (h *Handler) render(ctx context.Context, c tele.Context, replies []flow.Reply) error {
	var errs []error
	for _, r := range replies {
		kind, counted, err := h.deliver(c, r)
		if err != nil {
			if r.To != 0 {
				// A recipient who blocked the bot must not fail the author's request.
				logger.Warn(ctx, "service.notify", "notify.fail",
					slog.String("status", "fail"),
					slog.Int64("target_id", r.To),
					slog.String("err", err.Error()),
				)
				continue
			}
			errs = append(errs, err)
			continue
		}
		if counted {
			middleware.Record(c, kind, r.Keyboard != nil)
		}
	}
	return errors.Join(errs...)
}

// deliver performs one reply and reports which outbound call it made.
// Callback toasts and skipped edits are not counted.
func (h *Handler) deliver(c tele.Context, r flow.Reply) (middleware.Outbound, bool, error) {
	opts := sendOptions(r)
	isCallback := c.Callback() != nil
	switch r.Kind {
	case flow.ReplySend:
		if r.To != 0 && (c.Sender() == nil || r.To != c.Sender().ID) {
			return middleware.OutNotify, true, h.out.sendTo(c, r.To, r.Text, opts)
		}
		return middleware.OutMessage, true, h.out.send(c, r.Text, opts)
	case flow.ReplyPhoto:
		return middleware.OutPhoto, true, h.out.sendPhoto(c, r.Photo, r.Text)
	case flow.ReplyEdit:
		if !isCallback {
			return middleware.OutMessage, true, h.out.send(c, r.Text, opts)
		}
		return middleware.OutEdit, true, h.out.edit(c, r.Text, opts)
	case flow.ReplyEditKeyboard:
		if !isCallback {
			return 0, false, nil
		}
		return middleware.OutEdit, true, h.out.editMarkup(c, toMarkup(r.Keyboard))
	case flow.ReplyNotice:
		if isCallback {
			return 0, false, h.out.notice(c, r.Text)
		}
		return middleware.OutMessage, true, h.out.send(c, r.Text, opts)
	}
	return 0, false, nil
}

func sendOptions(r flow.Reply) *tele.SendOptions {
	markup := toMarkup(r.Keyboard)
	if markup == nil && r.Format == flow.FormatPlain {
		return nil
	}
	opts := &tele.SendOptions{ReplyMarkup: markup}
	if r.Format == flow.FormatMarkdownV2 {
		opts.ParseMode = tele.ModeMarkdownV2
	}
	return opts
}

func toMarkup(kb *flow.Keyboard) *tele.ReplyMarkup {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return keyboard.RemoveKeyboard()
	case len(kb.Menu) > 0:
		return keyboard.ReplyButtons(kb.Menu...)
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb.Inline))
	for _, row := range kb.Inline {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Label, Data: b.Token})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}

type telebotTransport struct{}

func (telebotTransport) send(c tele.Context, text string, opts *tele.SendOptions) error {
	if opts == nil {
		return tghelpers.SendText(c, text)
	}
	return tghelpers.SendText(c, text, opts)
}

func (telebotTransport) sendTo(c tele.Context, userID int64, text string, opts *tele.SendOptions) error {
	if opts == nil {
		return tghelpers.SendTo(c, userID, text)
	}
	return tghelpers.SendTo(c, userID, text, opts)
}

func (telebotTransport) sendPhoto(c tele.Context, png []byte, caption string) error {
	return tghelpers.SendPhoto(c, png, caption)
}

func (telebotTransport) edit(c tele.Context, text string, opts *tele.SendOptions) error {
	if opts == nil {
		return c.Edit(text)
	}
	return c.Edit(text, opts)
}

func (telebotTransport) editMarkup(c tele.Context, markup *tele.ReplyMarkup) error {
	_, err := c.Bot().EditReplyMarkup(c.Callback(), markup)
	return err
}

func (telebotTransport) notice(c tele.Context, text string) error {
	if c.Callback() == nil {
		return tghelpers.SendText(c, text)
	}
	return callbacks.Respond(c, &tele.CallbackResponse{Text: text})
}
