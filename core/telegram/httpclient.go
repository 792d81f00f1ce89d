package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/facilitybot/core/telegram/netutil"
)

// HTTPClientOptions tune the client used for Telegram Bot API calls.
type HTTPClientOptions struct {
	// LongPoll is how long getUpdates may hold a response. Header and
	// client timeouts are stretched past it so idle polls do not fail.
	LongPoll time.Duration
	// Retries is the number of extra attempts for transient failures.
	Retries int
	Backoff time.Duration
}

const (
	defaultDialTimeout     = 5 * time.Second
	defaultTLSHandshake    = 5 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
	defaultResponseTimeout = 5 * time.Second
	defaultRequestBudget   = 30 * time.Second
	defaultRetryAttempts   = 2
	defaultRetryBackoff    = time.Second
	maxRetryBackoff        = 5 * time.Second
)

// BuildHTTPClient returns an HTTP client for Telegram API calls. Requests with
// a replayable body are retried on transient transport errors.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = defaultRetryAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultRetryBackoff
	}

	headerTimeout := defaultResponseTimeout + opts.LongPoll
	return &http.Client{
		Timeout: defaultRequestBudget + opts.LongPoll,
		Transport: &retryTransport{
			base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       defaultIdleConnTimeout,
				TLSHandshakeTimeout:   defaultTLSHandshake,
				ResponseHeaderTimeout: headerTimeout,
			},
			retries: opts.Retries,
			backoff: opts.Backoff,
		},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && netutil.ShouldRetry(err); attempt++ {
		next := req.Clone(req.Context())
		if req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, err
			}
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, err
			}
			next.Body = body
		}

		timer := time.NewTimer(netutil.Backoff(t.backoff, attempt, maxRetryBackoff))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
