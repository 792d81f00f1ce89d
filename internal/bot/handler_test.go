package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tg "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/core/telegram/middleware"
	"github.com/m3rciful/facilitybot/internal/deeplink"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/flow"
	"github.com/m3rciful/facilitybot/internal/storage/memstore"

	tele "gopkg.in/telebot.v4"
)

const (
	adminID int64 = 100
	guestID int64 = 300
)

type fakeQR struct{}

func (fakeQR) Encode(content string) ([]byte, error) { return []byte("png:" + content), nil }

type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
}

func (f *fakeContext) Update() tele.Update      { return f.upd }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }
func (f *fakeContext) Message() *tele.Message   { return f.upd.Message }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }

func (f *fakeContext) Sender() *tele.User {
	if f.upd.Callback != nil {
		return f.upd.Callback.Sender
	}
	return f.upd.Message.Sender
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.upd.Message != nil {
		return f.upd.Message.Chat
	}
	return &tele.Chat{ID: f.upd.Callback.Sender.ID, Type: tele.ChatPrivate}
}

func textCtx(userID int64, text string) *fakeContext {
	return &fakeContext{store: map[string]any{}, upd: tele.Update{ID: 1, Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
	}}}
}

func callbackCtx(userID int64, data string) *fakeContext {
	return &fakeContext{store: map[string]any{}, upd: tele.Update{ID: 2, Callback: &tele.Callback{
		Data:   data,
		Sender: &tele.User{ID: userID},
	}}}
}

type delivery struct {
	kind   string
	to     int64
	text   string
	opts   *tele.SendOptions
	markup *tele.ReplyMarkup
	photo  []byte
}

type recorder struct {
	out       []delivery
	sendToErr error
}

func (r *recorder) send(_ tele.Context, text string, opts *tele.SendOptions) error {
	r.out = append(r.out, delivery{kind: "send", text: text, opts: opts})
	return nil
}

func (r *recorder) sendTo(_ tele.Context, userID int64, text string, opts *tele.SendOptions) error {
	r.out = append(r.out, delivery{kind: "send_to", to: userID, text: text, opts: opts})
	return r.sendToErr
}

func (r *recorder) sendPhoto(_ tele.Context, png []byte, caption string) error {
	r.out = append(r.out, delivery{kind: "photo", text: caption, photo: png})
	return nil
}

func (r *recorder) edit(_ tele.Context, text string, opts *tele.SendOptions) error {
	r.out = append(r.out, delivery{kind: "edit", text: text, opts: opts})
	return nil
}

func (r *recorder) editMarkup(_ tele.Context, markup *tele.ReplyMarkup) error {
	r.out = append(r.out, delivery{kind: "edit_markup", markup: markup})
	return nil
}

func (r *recorder) notice(_ tele.Context, text string) error {
	r.out = append(r.out, delivery{kind: "notice", text: text})
	return nil
}

func (r *recorder) take() []delivery {
	out := r.out
	r.out = nil
	return out
}

func newHandler(t *testing.T) (*Handler, *recorder, *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	if _, err := store.EnsureRole(ctx, domain.RoleAdmin); err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if _, _, err := store.EnsureUser(ctx, adminID); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := store.GrantRole(ctx, adminID, domain.RoleAdmin); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	m, err := flow.New(flow.Options{Store: store, Links: deeplink.NewBuilder("", "facility_bot"), QR: fakeQR{}})
	if err != nil {
		t.Fatalf("flow.New: %v", err)
	}
	h := New(m, store)
	rec := &recorder{}
	h.out = rec
	return h, rec, store
}

func single(t *testing.T, rec *recorder, kind string) delivery {
	t.Helper()
	out := rec.take()
	if len(out) != 1 || out[0].kind != kind {
		t.Fatalf("expected one %s delivery, got %+v", kind, out)
	}
	return out[0]
}

func TestAdminRoomLifecycle(t *testing.T) {
	h, rec, _ := newHandler(t)

	if err := h.onMessage(textCtx(adminID, "/start")); err != nil {
		t.Fatalf("/start: %v", err)
	}
	d := single(t, rec, "send")
	if d.opts == nil || d.opts.ReplyMarkup == nil || len(d.opts.ReplyMarkup.ReplyKeyboard) != 2 {
		t.Fatalf("expected admin menu, got %+v", d.opts)
	}

	_ = h.onMessage(textCtx(adminID, flow.LabelAddRoom))
	d = single(t, rec, "send")
	if kb := d.opts.ReplyMarkup.InlineKeyboard; len(kb) != 1 || kb[0][0].Data != "flow_cancel" {
		t.Fatalf("expected cancel button, got %+v", kb)
	}
	if !h.InProgress(adminID) {
		t.Fatalf("expected conversation in progress")
	}

	_ = h.onMessage(textCtx(adminID, "Lobby"))
	if d = single(t, rec, "send"); d.text != "Room 'Lobby' added!" {
		t.Fatalf("unexpected reply %q", d.text)
	}

	_ = h.onCallback(callbackCtx(adminID, "room_qr_1"))
	d = single(t, rec, "photo")
	if !strings.Contains(d.text, "https://t.me/facility_bot?start=room_1") || string(d.photo) != "png:https://t.me/facility_bot?start=room_1" {
		t.Fatalf("unexpected photo %+v", d)
	}

	_ = h.onCallback(callbackCtx(adminID, "room_delete_1"))
	d = single(t, rec, "edit_markup")
	if got := d.markup.InlineKeyboard[0][0].Data; got != "confirm_delete_1" {
		t.Fatalf("confirm button data = %q", got)
	}

	_ = h.onCallback(callbackCtx(adminID, "confirm_delete_1"))
	if d = single(t, rec, "edit"); d.text != "Room 'Lobby' deleted." || d.opts != nil {
		t.Fatalf("unexpected edit %+v", d)
	}
}

func TestAppealNotifiesCreator(t *testing.T) {
	h, rec, store := newHandler(t)
	room, err := store.CreateRoom(context.Background(), "Kitchen", adminID)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	_ = h.onMessage(textCtx(guestID, "/start "+deeplink.Payload(room.ID)))
	if d := single(t, rec, "send"); d.text != "Describe the problem in room 'Kitchen':" {
		t.Fatalf("unexpected prompt %q", d.text)
	}

	rec.sendToErr = errors.New("Forbidden: bot was blocked by the user (403)")
	if err := h.onMessage(textCtx(guestID, "Leaking tap")); err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
	out := rec.take()
	if len(out) != 2 || out[0].kind != "send" || out[1].kind != "send_to" || out[1].to != adminID {
		t.Fatalf("unexpected deliveries %+v", out)
	}
	if out[1].text != "New appeal for room 'Kitchen':\n\nLeaking tap" {
		t.Fatalf("unexpected notification %q", out[1].text)
	}
}

func TestRenderRecordsOutboundCounters(t *testing.T) {
	h, rec, store := newHandler(t)
	room, err := store.CreateRoom(context.Background(), "Hall", adminID)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	_ = h.onMessage(textCtx(guestID, "/start "+deeplink.Payload(room.ID)))
	rec.take()

	c := textCtx(guestID, "Broken lamp")
	if err := middleware.MessageMetricsMiddleware(h.onMessage)(c); err != nil {
		t.Fatalf("onMessage: %v", err)
	}
	n := middleware.CountersFrom(c)
	if n.Messages != 1 || n.Notified != 1 || n.Total() != 2 {
		t.Fatalf("counters = %+v", n)
	}

	rec.sendToErr = errors.New("Forbidden: bot was blocked by the user (403)")
	_ = h.onMessage(textCtx(guestID, "/start "+deeplink.Payload(room.ID)))
	c = textCtx(guestID, "Still broken")
	_ = middleware.MessageMetricsMiddleware(h.onMessage)(c)
	if n := middleware.CountersFrom(c); n.Notified != 0 || n.Messages != 1 {
		t.Fatalf("failed notification counted: %+v", n)
	}
}

func TestCallbacksFromNonAdmin(t *testing.T) {
	h, rec, _ := newHandler(t)
	_ = h.onCallback(callbackCtx(guestID, "room_qr_1"))
	if d := single(t, rec, "notice"); d.text != "Access denied." {
		t.Fatalf("unexpected notice %q", d.text)
	}
	_ = h.onCallback(callbackCtx(guestID, "room_qr_x"))
	if d := single(t, rec, "notice"); d.text != msgUnsupported {
		t.Fatalf("unexpected notice %q", d.text)
	}
}

func TestThrottled(t *testing.T) {
	h, rec, _ := newHandler(t)
	if err := h.Throttled(textCtx(guestID, "spam")); err != nil || len(rec.take()) != 0 {
		t.Fatalf("throttled message must be dropped silently")
	}
	_ = h.Throttled(callbackCtx(guestID, "room_qr_1"))
	if d := single(t, rec, "notice"); d.text != msgSlowDown {
		t.Fatalf("unexpected notice %q", d.text)
	}
}

func TestGetIDUsesMarkdownV2(t *testing.T) {
	h, rec, _ := newHandler(t)
	_ = h.onMessage(textCtx(guestID, "/get_id"))
	d := single(t, rec, "send")
	if d.opts == nil || d.opts.ParseMode != tele.ModeMarkdownV2 || d.text != "Your ID: `300`" {
		t.Fatalf("unexpected reply %+v", d)
	}
}

func TestGroupChatIsRejected(t *testing.T) {
	h, rec, _ := newHandler(t)
	c := textCtx(guestID, "/start")
	c.upd.Message.Chat = &tele.Chat{ID: -42, Type: tele.ChatGroup}
	_ = h.onMessage(c)
	if d := single(t, rec, "send"); d.text != msgPrivateChatOnly {
		t.Fatalf("unexpected reply %q", d.text)
	}
}

func TestFallbacks(t *testing.T) {
	h, rec, _ := newHandler(t)
	_ = h.UnknownMedia()(textCtx(guestID, ""))
	if d := single(t, rec, "send"); d.text != msgTextOnly {
		t.Fatalf("unexpected reply %q", d.text)
	}
	_ = h.UnknownCallback()(callbackCtx(guestID, "whatever"))
	single(t, rec, "notice")
	_ = h.reject(textCtx(guestID, "/add_admin 5"))
	if d := single(t, rec, "send"); d.text != msgAccessDenied {
		t.Fatalf("unexpected reply %q", d.text)
	}
}

func TestIsAdmin(t *testing.T) {
	h, _, _ := newHandler(t)
	ctx := context.Background()
	if !h.IsAdmin(ctx, adminID) || h.IsAdmin(ctx, guestID) {
		t.Fatalf("IsAdmin mismatch")
	}
}

func TestDecodeCallbackKey(t *testing.T) {
	cases := map[string]string{
		"room_appeals_3":   "room_appeals",
		"confirm_delete_9": "confirm_delete",
		"notify_done":      "notify_done",
		"flow_cancel":      "cancel",
	}
	for data, want := range cases {
		got, ok := DecodeCallbackKey(data)
		if !ok || got != want {
			t.Fatalf("DecodeCallbackKey(%q) = %q, %v", data, got, ok)
		}
	}
	if _, ok := DecodeCallbackKey("room_qr_0"); ok {
		t.Fatalf("expected zero id to be rejected")
	}
}

func TestRegister(t *testing.T) {
	h, _, _ := newHandler(t)
	reg := tg.NewRegistry()
	if err := h.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(reg.ListCallbacks()) != len(callbackKinds) {
		t.Fatalf("callbacks = %v", reg.ListCallbacks())
	}
	if visible := reg.ListCommands(false); len(visible) != 3 {
		t.Fatalf("visible commands = %+v", visible)
	}
	if admin := reg.ListCommands(true); len(admin) != 4 {
		t.Fatalf("admin commands = %+v", admin)
	}
	if reg.TextFallback() == nil {
		t.Fatalf("text fallback not set")
	}
	if routes := h.Routes(reg); len(routes) < 6 {
		t.Fatalf("too few routes: %d", len(routes))
	}
}
