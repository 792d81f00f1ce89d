package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

const appealTimeLayout = "02.01.2006 15:04"

func (m *Machine) onRoomName(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return []Reply{send(msgRoomNameEmpty)}, nil
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLen {
		return []Reply{send(fmt.Sprintf(msgRoomNameTooLong, MaxRoomNameLen))}, nil
	}
	room, err := m.store.CreateRoom(ctx, name, ev.UserID)
	if err != nil {
		return nil, err
	}
	sess.reset()
	logger.Info(ctx, "service.rooms", "room.created",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.Int64("room_id", room.ID),
	)
	return []Reply{sendWith(fmt.Sprintf(msgRoomAdded, room.Name), adminMenu())}, nil
}

func (m *Machine) onListRooms(ctx context.Context, ev Event) ([]Reply, error) {
	rooms, err := m.store.ListActiveRooms(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return []Reply{send(msgNoRooms)}, nil
	}
	replies := make([]Reply, 0, len(rooms))
	for _, room := range rooms {
		replies = append(replies, sendWith(fmt.Sprintf(msgRoomCard, room.Name), roomActions(room.ID)))
	}
	return replies, nil
}

func (m *Machine) onRoomAppeals(ctx context.Context, ev Event) ([]Reply, error) {
	room, err := m.store.GetRoom(ctx, ev.RoomID)
	if errors.Is(err, storage.ErrNotFound) {
		return []Reply{notice(msgRoomNotFound)}, nil
	}
	if err != nil {
		return nil, err
	}
	appeals, err := m.store.ListAppeals(ctx, room.ID, m.appealsLimit)
	if err != nil {
		return nil, err
	}
	if len(appeals) == 0 {
		return []Reply{send(fmt.Sprintf(msgNoAppeals, room.Name))}, nil
	}
	return []Reply{send(formatAppeals(room, appeals, m.loc))}, nil
}

// formatAppeals renders dates in loc, since stores may return them in UTC.
func formatAppeals(room domain.Room, appeals []domain.Appeal, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgAppealsHeader, room.Name)
	for _, a := range appeals {
		fmt.Fprintf(&b, "\n\n📅 %s\n%s", a.CreatedAt.In(loc).Format(appealTimeLayout), a.Message)
	}
	return b.String()
}

func (m *Machine) onRoomQR(ctx context.Context, ev Event) ([]Reply, error) {
	room, found, err := m.activeRoom(ctx, ev.RoomID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Reply{notice(msgRoomNotFound)}, nil
	}
	link, err := m.links.RoomLink(room.ID)
	if err != nil {
		return nil, err
	}
	png, err := m.qr.Encode(link)
	if err != nil {
		return nil, err
	}
	return []Reply{{
		Kind:  ReplyPhoto,
		Text:  fmt.Sprintf(msgQRCaption, room.Name, link),
		Photo: png,
	}}, nil
}

func (m *Machine) onRoomDelete(ctx context.Context, ev Event) ([]Reply, error) {
	room, found, err := m.activeRoom(ctx, ev.RoomID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Reply{notice(msgRoomNotFound)}, nil
	}
	return []Reply{editKeyboard(confirmDelete(room.ID))}, nil
}

func (m *Machine) onConfirmDelete(ctx context.Context, ev Event) ([]Reply, error) {
	room, err := m.store.GetRoom(ctx, ev.RoomID)
	if errors.Is(err, storage.ErrNotFound) {
		return []Reply{notice(msgRoomNotFound)}, nil
	}
	if err != nil {
		return nil, err
	}
	if room.Active() {
		if err := m.store.ArchiveRoom(ctx, room.ID); err != nil {
			return nil, err
		}
		logger.Info(ctx, "service.rooms", "room.archived",
			slog.String("status", "ok"),
			slog.Int64("user_id", ev.UserID),
			slog.Int64("room_id", room.ID),
		)
	}
	return []Reply{edit(fmt.Sprintf(msgRoomDeleted, room.Name), nil)}, nil
}

func (m *Machine) onCancelDelete(ctx context.Context, ev Event) ([]Reply, error) {
	room, err := m.store.GetRoom(ctx, ev.RoomID)
	if errors.Is(err, storage.ErrNotFound) {
		return []Reply{notice(msgRoomNotFound)}, nil
	}
	if err != nil {
		return nil, err
	}
	if !room.Active() {
		return []Reply{edit(fmt.Sprintf(msgRoomDeleted, room.Name), nil)}, nil
	}
	return []Reply{editKeyboard(roomActions(room.ID))}, nil
}
