package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/facilitybot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// AllowedUpdates lists the update types the bot subscribes to. Everything
// else (edits, channel posts, inline queries) is filtered out by Telegram.
var AllowedUpdates = []string{"message", "callback_query"}

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// IsWebhook reports whether the run mode selects webhook delivery.
func (o PollerOptions) IsWebhook() bool {
	return strings.EqualFold(strings.TrimSpace(o.RunMode), coreconfig.RunModeWebhook)
}

// LongPollTimeout is the getUpdates hold time; zero in webhook mode.
func (o PollerOptions) LongPollTimeout() time.Duration {
	switch {
	case o.IsWebhook():
		return 0
	case o.LongPollTimeoutSeconds > 0:
		return time.Duration(o.LongPollTimeoutSeconds) * time.Second
	}
	return defaultLongPollTimeout
}

// BuildPoller returns a webhook poller in webhook mode and a long poller otherwise.
func BuildPoller(opts PollerOptions) tele.Poller {
	if opts.IsWebhook() {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(opts.Webhook.Listen, strconv.Itoa(opts.Webhook.Port)),
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: opts.LongPollTimeout(), AllowedUpdates: AllowedUpdates}
}
