package router

import (
	"strings"
	"testing"

	tg "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	responses []*tele.CallbackResponse
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Chat() *tele.Chat         { return nil }

func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		f.responses = append(f.responses, nil)
		return nil
	}
	f.responses = append(f.responses, resp[0])
	return nil
}

func callbackUpdate(data string) tele.Update {
	return tele.Update{ID: 5, Callback: &tele.Callback{Data: data, Sender: &tele.User{ID: 1}}}
}

func decodeAction(data string) (string, bool) {
	i := strings.LastIndex(data, "_")
	if i <= 0 {
		return data, data != ""
	}
	return data[:i], true
}

func TestCallbackRouteDecodesKeyAndAnswersOnce(t *testing.T) {
	reg := tg.NewRegistry()
	var got string
	_ = reg.RegisterCallback("room_qr", func(c tele.Context) error {
		got = c.Callback().Data
		return nil
	})
	route := CallbackRoute(reg, CallbackOptions{Decode: decodeAction})

	c := newFakeContext(callbackUpdate("room_qr_12"))
	if err := route.Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got != "room_qr_12" {
		t.Fatalf("handler not called, got %q", got)
	}
	if len(c.responses) != 1 {
		t.Fatalf("expected one answer, got %d", len(c.responses))
	}
}

func TestCallbackRouteNotFound(t *testing.T) {
	reg := tg.NewRegistry()
	route := CallbackRoute(reg, CallbackOptions{Decode: decodeAction})
	c := newFakeContext(callbackUpdate("bogus_1"))
	_ = route.Handler(c)
	if len(c.responses) != 1 || c.responses[0] == nil || c.responses[0].Text != "Unsupported action." {
		t.Fatalf("unexpected responses: %+v", c.responses)
	}
}

type stubFSM struct {
	active  bool
	handled int
}

func (s *stubFSM) InProgress(int64) bool { return s.active }
func (s *stubFSM) ManagerHandler(tele.Context) error {
	s.handled++
	return nil
}

func textUpdate(text string) tele.Update {
	return tele.Update{ID: 6, Message: &tele.Message{Text: text, Sender: &tele.User{ID: 1}}}
}

func TestTextRoutesOrder(t *testing.T) {
	reg := tg.NewRegistry()
	cmdCalls, fallbackCalls := 0, 0
	reg.RegisterCommand("/help", commands.Command{Handler: func(tele.Context) error { cmdCalls++; return nil }, Description: "Help"})
	reg.SetTextFallback(func(tele.Context) error { fallbackCalls++; return nil })
	fsm := &stubFSM{}
	routes := TextRoutes(fsm, reg, TextOptions{})
	text := routes[0]
	if text.Endpoint != tele.OnText {
		t.Fatalf("first route endpoint = %v", text.Endpoint)
	}

	_ = text.Handler(newFakeContext(textUpdate("/help")))
	_ = text.Handler(newFakeContext(textUpdate("hello")))
	fsm.active = true
	_ = text.Handler(newFakeContext(textUpdate("/help")))

	if cmdCalls != 1 || fallbackCalls != 1 || fsm.handled != 1 {
		t.Fatalf("cmd=%d fallback=%d fsm=%d", cmdCalls, fallbackCalls, fsm.handled)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	if got := normalizeHandlerName(" /Add_Admin "); got != "add_admin" {
		t.Fatalf("normalizeHandlerName = %q", got)
	}
	if got := normalizeHandlerName(""); got != "unknown" {
		t.Fatalf("empty name = %q", got)
	}
}
