package logger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Status maps an error to the status attribute value. Cancellation, which
// happens when the bot shuts down mid-update, is not reported as a failure.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancel"
	}
	return "fail"
}

// Took returns the rounded duration since start.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to the nearest millisecond; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins up to limit values, appending "(+N more)" when some
// were cut, and reports whether that happened.
func SummarizeStrings(values []string, limit int) (string, bool) {
	switch {
	case len(values) == 0:
		return "", false
	case limit <= 0:
		return "", true
	case len(values) <= limit:
		return strings.Join(values, ", "), false
	}
	rest := strconv.Itoa(len(values) - limit)
	return strings.Join(values[:limit], ", ") + " (+" + rest + " more)", true
}
