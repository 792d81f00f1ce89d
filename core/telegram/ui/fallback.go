// Package ui declares presentation hooks shared by routers.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the replies for updates no route claims: free
// text outside any conversation, non-text media and unknown callback data.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownMedia() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
