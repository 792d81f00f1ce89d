package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherKeepsOrderPerKey(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 64})
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 10; i++ {
		for _, chat := range []int64{11, 12, -13} {
			chat, i := chat, i
			if err := d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
	}
	d.Close()
	for chat, seq := range got {
		if len(seq) != 10 {
			t.Fatalf("chat %d: expected 10 jobs, got %d", chat, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("chat %d out of order: %v", chat, seq)
			}
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	})
	d.Close()
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("expected no failures, got %d", d.ErrorCount())
	}
}

func TestDispatcherCountsPermanentFailure(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error {
		calls.Add(1)
		return errors.New("telegram: bot was blocked by the user (403)")
	})
	d.Close()
	if calls.Load() != 1 {
		t.Fatalf("permanent error retried %d times", calls.Load())
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d", d.ErrorCount())
	}
}

func TestDispatcherClosed(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, "a", "b", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), 1, "a", "b", func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	if err := d.Enqueue(context.Background(), 1, "a", "b", func() error { return nil }); err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	err := d.Enqueue(context.Background(), 1, "a", "b", func() error { return nil })
	close(release)
	d.Close()
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestClassifyAndSanitize(t *testing.T) {
	if got := classifyError(errors.New("telegram: Forbidden: bot was blocked by the user (403)")); got != "blocked" {
		t.Fatalf("classify 403 = %q", got)
	}
	if got := classifyError(&net.OpError{Op: "dial", Err: errors.New("x")}); got != "dial" {
		t.Fatalf("classify dial = %q", got)
	}
	msg := sanitizeErrorMessage(errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": EOF`))
	if msg != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("sanitize = %q", msg)
	}
}
