// Package commands describes slash commands and how they appear in the
// Telegram command menu.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Usage is appended to the menu description, e.g. "<telegram_id>".
	Usage string
	// AdminOnly commands are rejected for non-admins and listed only in
	// admin chats.
	AdminOnly bool
	// Hidden commands never appear in any menu.
	Hidden  bool
	Aliases []string
}

// VisibleTo reports whether the command belongs in the menu of an admin or
// regular chat.
func (c Command) VisibleTo(admin bool) bool {
	return !c.Hidden && (admin || !c.AdminOnly)
}

// MenuDescription is the text shown next to the command in the menu.
func (c Command) MenuDescription() string {
	if c.Usage == "" {
		return c.Description
	}
	return c.Description + " " + c.Usage
}

// Name reduces raw command text such as "/Start@FacilityBot room_5" to its
// canonical "/start" form. It returns "" for empty input.
func Name(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	if name == "" {
		return ""
	}
	return "/" + name
}
