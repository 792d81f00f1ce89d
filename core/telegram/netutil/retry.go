// Package netutil classifies Telegram API transport failures.
package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
	"time"
)

// ShouldRetry reports whether err is a transient transport failure: a dial
// error, a timeout, a reset connection or a response cut short. Cancelled
// contexts and API-level errors are never retried.
func ShouldRetry(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Backoff returns the linear delay before retry number attempt (1-based),
// capped at max when max is positive.
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if base <= 0 || attempt <= 0 {
		return 0
	}
	d := base * time.Duration(attempt)
	if max > 0 && d > max {
		return max
	}
	return d
}
