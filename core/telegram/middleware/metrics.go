package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const countersKey = "out_counters"

// Outbound classifies a Telegram call made while handling an update.
type Outbound int

const (
	OutMessage Outbound = iota
	OutPhoto
	OutEdit
	// OutNotify is a message to a user other than the sender.
	OutNotify
)

// Counters tallies outbound calls for the handler summary log. Sends are
// counted when queued on the dispatcher, not when Telegram accepts them.
type Counters struct {
	Messages int
	Photos   int
	Edits    int
	Notified int
	Keyboard bool
}

// Total is the number of outbound calls of any kind.
func (n *Counters) Total() int {
	if n == nil {
		return 0
	}
	return n.Messages + n.Photos + n.Edits + n.Notified
}

// MessageMetricsMiddleware installs fresh Counters on every update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(countersKey, &Counters{})
		return next(c)
	}
}

// Record adds one outbound call to the update's counters. It is a no-op when
// the metrics middleware did not run.
func Record(c tele.Context, kind Outbound, keyboard bool) {
	n := CountersFrom(c)
	if n == nil {
		return
	}
	switch kind {
	case OutPhoto:
		n.Photos++
	case OutEdit:
		n.Edits++
	case OutNotify:
		n.Notified++
	default:
		n.Messages++
	}
	if keyboard {
		n.Keyboard = true
	}
}

// CountersFrom returns the counters installed by MessageMetricsMiddleware.
func CountersFrom(c tele.Context) *Counters {
	if c == nil {
		return nil
	}
	n, _ := c.Get(countersKey).(*Counters)
	return n
}
