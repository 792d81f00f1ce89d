package telegram

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs   []error
	calls  int
	bodies []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, string(data))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRetryTransportReplaysBody(t *testing.T) {
	base := &scriptedTransport{errs: []error{io.ErrUnexpectedEOF, nil}}
	rt := &retryTransport{base: base, retries: 2, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader(`{"text":"hi"}`))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
	if base.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", base.calls)
	}
	if base.bodies[1] != `{"text":"hi"}` {
		t.Fatalf("body not replayed: %q", base.bodies[1])
	}
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("tls: bad certificate")
	base := &scriptedTransport{errs: []error{permanent}}
	rt := &retryTransport{base: base, retries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", base.calls)
	}
}

func TestBuildHTTPClientStretchesForLongPoll(t *testing.T) {
	client := BuildHTTPClient(HTTPClientOptions{LongPoll: 50 * time.Second})
	if client.Timeout != defaultRequestBudget+50*time.Second {
		t.Fatalf("unexpected client timeout %v", client.Timeout)
	}
	rt := client.Transport.(*retryTransport)
	if rt.retries != defaultRetryAttempts {
		t.Fatalf("expected default retries, got %d", rt.retries)
	}
	base := rt.base.(*http.Transport)
	if base.ResponseHeaderTimeout <= 50*time.Second {
		t.Fatalf("header timeout %v shorter than long poll", base.ResponseHeaderTimeout)
	}
}
