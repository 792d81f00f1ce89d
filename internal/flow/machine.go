// Package flow implements the conversation state machine of the facility bot.
// It consumes decoded events, consults storage and returns replies; it never
// talks to Telegram directly.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

const component = "flow"

// DefaultAppealsLimit is the number of appeals shown per room.
const DefaultAppealsLimit = 10

// MaxRoomNameLen is the maximum room name length in characters.
const MaxRoomNameLen = 255

// RoleChecker reports whether a user holds a role.
type RoleChecker interface {
	HasRole(ctx context.Context, userID int64, role string) (bool, error)
}

// LinkBuilder renders room deep links.
type LinkBuilder interface {
	RoomLink(roomID int64) (string, error)
}

// QREncoder renders content as a PNG QR code.
type QREncoder interface {
	Encode(content string) ([]byte, error)
}

// Options configures a Machine. Store, Links and QR are required.
type Options struct {
	Store storage.Store
	// Roles defaults to Store.
	Roles    RoleChecker
	Links    LinkBuilder
	QR       QREncoder
	Sessions *Sessions
	Now      func() time.Time
	NewID    func() string
	// AppealsLimit defaults to DefaultAppealsLimit.
	AppealsLimit int
	// Location is the zone appeal dates are shown in; defaults to time.Local.
	Location *time.Location
}

// Machine routes events through per-user sessions.
type Machine struct {
	store        storage.Store
	roles        RoleChecker
	links        LinkBuilder
	qr           QREncoder
	sessions     *Sessions
	now          func() time.Time
	newID        func() string
	appealsLimit int
	loc          *time.Location
}

// New validates opts and builds a Machine.
func New(opts Options) (*Machine, error) {
	if opts.Store == nil {
		return nil, errors.New("flow: store is required")
	}
	if opts.Links == nil {
		return nil, errors.New("flow: link builder is required")
	}
	if opts.QR == nil {
		return nil, errors.New("flow: qr encoder is required")
	}
	m := &Machine{
		store:        opts.Store,
		roles:        opts.Roles,
		links:        opts.Links,
		qr:           opts.QR,
		sessions:     opts.Sessions,
		now:          opts.Now,
		newID:        opts.NewID,
		appealsLimit: opts.AppealsLimit,
		loc:          opts.Location,
	}
	if m.roles == nil {
		m.roles = opts.Store
	}
	if m.sessions == nil {
		m.sessions = NewSessions()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.appealsLimit <= 0 {
		m.appealsLimit = DefaultAppealsLimit
	}
	return m, nil
}

// Sessions exposes the session store.
func (m *Machine) Sessions() *Sessions {
	return m.sessions
}

// InProgress reports whether userID has a conversation in progress.
func (m *Machine) InProgress(userID int64) bool {
	return m.sessions.InProgress(userID)
}

// Handle processes one event. Events of the same user are serialized.
// Storage failures reset the session, produce a generic reply and are
// returned so the caller can log them.
func (m *Machine) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	sess, release := m.sessions.Acquire(ev.UserID)
	defer release()

	from := sess.State
	flowID := sess.FlowID
	replies, err := m.dispatch(ctx, sess, ev)
	if err != nil {
		logger.Error(ctx, component, "flow.fail",
			slog.String("status", "fail"),
			slog.Int64("user_id", ev.UserID),
			slog.String("op", ev.Kind.String()),
			slog.String("state", string(from)),
			slog.String("flow_id", flowID),
			slog.String("err", err.Error()),
		)
		sess.reset()
		return []Reply{send(msgInternalError)}, err
	}
	if sess.State != from {
		if sess.FlowID != "" {
			flowID = sess.FlowID
		}
		logger.Info(ctx, component, "flow.transition",
			slog.String("status", "ok"),
			slog.Int64("user_id", ev.UserID),
			slog.String("op", ev.Kind.String()),
			slog.String("from", string(from)),
			slog.String("to", string(sess.State)),
			slog.String("flow_id", flowID),
		)
	}
	return replies, nil
}

func (m *Machine) dispatch(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	switch ev.Kind {
	case KindStart:
		return m.onStart(ctx, sess, ev)
	case KindCancel:
		return m.onCancel(sess, ev), nil
	case KindGetID:
		return []Reply{{Kind: ReplySend, Text: fmt.Sprintf(msgYourID, ev.UserID), Format: FormatMarkdownV2}}, nil
	case KindText:
		return m.onText(ctx, sess, ev)
	}

	admin, err := m.isAdmin(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if !admin {
		if isMenu(ev.Kind) {
			// Menu labels are plain text for everyone else.
			return m.onText(ctx, sess, Event{Kind: KindText, UserID: ev.UserID, Text: ev.Text})
		}
		return []Reply{notice(msgAccessDenied)}, nil
	}

	switch ev.Kind {
	case KindAddAdmin:
		return m.onAddAdmin(ctx, ev), nil
	case KindMenuAddRoom:
		sess.begin(StateAwaitingRoomName, m.newID())
		return []Reply{sendWith(msgEnterRoomName, cancelKeyboard())}, nil
	case KindMenuListRooms:
		sess.reset()
		return m.onListRooms(ctx, ev)
	case KindMenuAssignStaff:
		return m.onAssignStaff(ctx, sess, ev)
	case KindRoomAppeals:
		return m.onRoomAppeals(ctx, ev)
	case KindRoomQR:
		return m.onRoomQR(ctx, ev)
	case KindRoomDelete:
		return m.onRoomDelete(ctx, ev)
	case KindConfirmDelete:
		return m.onConfirmDelete(ctx, ev)
	case KindCancelDelete:
		return m.onCancelDelete(ctx, ev)
	case KindRoomNotify:
		return m.onToggleRoom(ctx, sess, ev)
	case KindNotifyDone:
		return m.onNotifyDone(ctx, sess)
	}
	return []Reply{notice(msgUnsupported)}, nil
}

func (m *Machine) onText(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	switch sess.State {
	case StateAwaitingRoomName:
		return m.onRoomName(ctx, sess, ev)
	case StateAwaitingAppealText:
		return m.onAppealText(ctx, sess, ev)
	case StateAwaitingStaffUserID:
		return m.onStaffUserID(ctx, sess, ev)
	}
	admin, err := m.isAdmin(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if admin {
		return []Reply{sendWith(msgChooseAction, adminMenu())}, nil
	}
	return []Reply{send(msgScanQR)}, nil
}

func (m *Machine) onCancel(sess *Session, ev Event) []Reply {
	wasIdle := sess.State == StateIdle
	sess.reset()
	if ev.Callback {
		return []Reply{edit(msgCancelled, nil)}
	}
	if wasIdle {
		return []Reply{send(msgNothingToCancel)}
	}
	return []Reply{send(msgCancelled)}
}

func (m *Machine) onAddAdmin(ctx context.Context, ev Event) []Reply {
	id, err := parseCommandID(ev.Text)
	if err != nil {
		return []Reply{send(fmt.Sprintf(msgError, err))}
	}
	if _, _, err := m.store.EnsureUser(ctx, id); err != nil {
		return []Reply{send(fmt.Sprintf(msgError, err))}
	}
	if err := m.store.GrantRole(ctx, id, domain.RoleAdmin); err != nil {
		return []Reply{send(fmt.Sprintf(msgError, err))}
	}
	logger.Info(ctx, "service.users", "user.admin_granted",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.Int64("target_id", id),
	)
	return []Reply{send(fmt.Sprintf(msgAdminGranted, id))}
}

func (m *Machine) isAdmin(ctx context.Context, userID int64) (bool, error) {
	ok, err := m.roles.HasRole(ctx, userID, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("check admin role: %w", err)
	}
	return ok, nil
}

func isMenu(k Kind) bool {
	return k == KindMenuAddRoom || k == KindMenuListRooms || k == KindMenuAssignStaff
}
