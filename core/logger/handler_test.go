package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func logLine(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	LogEvent(ctx, slog.New(handler).With("component", component), level, event, attrs...)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)
	line := logLine(t, formatKV, ctx, "flow", slog.LevelInfo, "flow.transition",
		slog.String("to", "idle"),
		slog.String("from", "awaiting_room_name"),
		slog.String("status", "ok"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=flow", "event=flow.transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "from=awaiting_room_name", "to=idle"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := logLine(t, formatJSON, ctx, "service.rooms", slog.LevelError, "room.archive",
		slog.String("status", "error"),
		slog.String("err", "boom"),
		slog.Int64("room_id", 5),
	)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.rooms"`, `"event":"room.archive"`, `"status":"fail"`, `"rid":"rid-json"`, `"room_id":5`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	line := logLine(t, formatKV, WithRID(context.Background(), rawRID), "app", slog.LevelInfo, "rid.test")
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}

	line = logLine(t, formatJSON, WithRID(context.Background(), rawRID), "app", slog.LevelInfo, "rid.test")
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) || !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected compact and full rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationsAndGroups(t *testing.T) {
	line := logLine(t, formatKV, context.Background(), "db", slog.LevelInfo, "db.connect",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
		slog.Group("pool", slog.Int("open", 4)),
		slog.String("empty", ""),
	)
	for _, want := range []string{"duration_ms=2", "backoff_ms=2000", "pool.open=4"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	if strings.Contains(line, "empty=") {
		t.Fatalf("empty values should be pruned: %s", line)
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	line := logLine(t, formatKV, context.Background(), "app", slog.LevelDebug, "noise")
	if line != "" {
		t.Fatalf("debug line should be filtered, got %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:37": "z.10.11",
		"a:b:c":    "a:b:c",
		" 1:2 ":    "1:2",
		"":         "",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q; expected %q", in, got, want)
		}
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	if !got[0] || got[1] || got[2] || !got[3] {
		t.Fatalf("unexpected sampling %v", got)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("zero ratio should allow")
	}
	if num, den := parseRatioSpec("2/5"); num != 2 || den != 5 {
		t.Fatalf("parseRatioSpec = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("10"); num != 1 || den != 10 {
		t.Fatalf("parseRatioSpec = %d/%d", num, den)
	}
}
