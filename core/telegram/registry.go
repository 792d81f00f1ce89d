package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/core/telegram/callbacks"
	"github.com/m3rciful/facilitybot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands and callbacks.
type Registry struct {
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return callbacks.Respond(c, &tele.CallbackResponse{Text: "Unsupported action."})
		},
	}
}

// RegisterCommand adds a new command under its canonical "/name" form.
// Invalid and duplicate names are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	ctx := context.Background()
	key := commands.Name(name)
	switch {
	case r == nil || key == "" || cmd.Handler == nil || cmd.Description == "":
		logger.Warn(ctx, "tg.wire", "register.command.skip", slog.String("name", name), slog.String("reason", "invalid"))
		return
	case !strings.HasPrefix(strings.TrimSpace(name), "/"):
		logger.Warn(ctx, "tg.wire", "register.command.skip", slog.String("name", name), slog.String("reason", "no_slash_prefix"))
		return
	}
	if _, exists := r.commands[key]; exists {
		logger.Warn(ctx, "tg.wire", "register.command.duplicate", slog.String("name", key))
		return
	}
	r.commands[key] = cmd
}

// ListCommands returns the menu entries for an admin or regular chat,
// sorted by name.
func (r *Registry) ListCommands(admin bool) []tele.Command {
	var list []tele.Command
	for name, cmd := range r.commands {
		if cmd.VisibleTo(admin) {
			list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.MenuDescription()})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand finds a command by name or alias and returns its canonical key.
// Arguments and a "@bot" suffix in name are ignored.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	key := commands.Name(name)
	if key == "" {
		return "", commands.Command{}, false
	}
	if cmd, ok := r.commands[key]; ok {
		return key, cmd, true
	}
	for canonical, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if commands.Name(alias) == key {
				return canonical, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback maps a callback key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		logger.Warn(context.Background(), "tg.wire", "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.Warn(context.Background(), "tg.wire", "register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys.
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that matches no command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// InitBotCommands publishes the default command menu and, for every admin
// chat, a menu that also lists admin-only commands. Failures are logged.
func InitBotCommands(ctx context.Context, bot *tele.Bot, reg *Registry, adminIDs []int64) {
	list := reg.ListCommands(false)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(ctx, "tg.wire", "register.commands", slog.String("status", "fail"), slog.String("err", err.Error()))
		return
	}
	summary, _ := logger.SummarizeStrings(commandNames(list), 10)
	logger.Info(ctx, "tg.wire", "register.commands", slog.String("status", "ok"), slog.String("commands", summary))

	adminList := reg.ListCommands(true)
	if len(adminList) == len(list) {
		return
	}
	failed := 0
	for _, id := range adminIDs {
		scope := tele.CommandScope{Type: tele.CommandScopeChat, ChatID: id}
		if err := bot.SetCommands(adminList, scope); err != nil {
			failed++
			logger.Warn(ctx, "tg.wire", "register.commands.admin", slog.Int64("chat_id", id), slog.String("err", err.Error()))
		}
	}
	logger.Info(ctx, "tg.wire", "register.commands.admin",
		slog.Int("chats", len(adminIDs)),
		slog.Int("failed", failed),
	)
}

func commandNames(list []tele.Command) []string {
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Text)
	}
	return names
}
