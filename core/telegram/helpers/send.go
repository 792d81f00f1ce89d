package helpers

import (
	"bytes"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// A nil dispatcher makes helpers send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, chatID int64, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, chatID, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func currentChatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

// SendText sends text to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, currentChatID(c), "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMDV2 sends a MarkdownV2 message with optional reply markup.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: rm})
}

// SendTo sends text to another user's private chat.
func SendTo(c tele.Context, userID int64, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	to := &tele.User{ID: userID}
	return sendAsync(c, userID, "send.notify", "sendMessage", func() error {
		var err error
		if sendOpts != nil {
			_, err = c.Bot().Send(to, text, sendOpts)
		} else {
			_, err = c.Bot().Send(to, text)
		}
		return err
	})
}

// SendPhoto uploads a PNG image with a caption to the current chat. The
// reader is recreated on every attempt so retries resend the full image.
func SendPhoto(c tele.Context, png []byte, caption string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, currentChatID(c), "send.photo", "sendPhoto", func() error {
		photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png)), Caption: caption}
		if sendOpts != nil {
			return c.Send(photo, sendOpts)
		}
		return c.Send(photo)
	})
}
