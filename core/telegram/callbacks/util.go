// Package callbacks reads inline button data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits callback data into key and payload. Telebot's
// "\f<unique>|<payload>" encoding is recognised; any other data is returned
// whole as the key.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw, framed := strings.CutPrefix(cb.Data, "\f")
	if !framed {
		return strings.TrimSpace(raw), ""
	}
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Data returns the raw callback data with Telebot framing removed.
func Data(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(cb.Data, "\f")
}

// answeredKey marks a callback as already answered in the telebot context.
const answeredKey = "cb_answered"

// Respond answers the callback query once; later calls are no-ops.
func Respond(c tele.Context, resp *tele.CallbackResponse) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if resp == nil {
		return c.Respond()
	}
	return c.Respond(resp)
}

// Answered reports whether Respond was already called for this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
