// Package keyboard builds telebot reply markups.
package keyboard

import (
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"
)

const (
	// MaxCallbackData is Telegram's limit on callback_data, in bytes.
	MaxCallbackData = 64
	// MaxLabel caps button captions; longer labels are cut with an ellipsis.
	MaxLabel = 48
)

// InlineBtn describes an inline button whose Data is sent back verbatim.
type InlineBtn struct {
	Text string
	Data string
}

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a persistent reply keyboard from rows of text.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// InlineButtonsRows builds an inline keyboard. Buttons with empty or
// oversized data are dropped, since Telegram rejects the whole message
// otherwise, and so are rows left empty.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			if !ValidData(btn.Data) {
				continue
			}
			r = append(r, tele.InlineButton{Text: Label(btn.Text), Data: btn.Data})
		}
		if len(r) > 0 {
			inline = append(inline, r)
		}
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// ValidData reports whether data fits Telegram's callback_data limits.
func ValidData(data string) bool {
	return data != "" && len(data) <= MaxCallbackData
}

// Label shortens s to MaxLabel runes.
func Label(s string) string {
	if utf8.RuneCountInString(s) <= MaxLabel {
		return s
	}
	r := []rune(s)
	return string(r[:MaxLabel-1]) + "…"
}
