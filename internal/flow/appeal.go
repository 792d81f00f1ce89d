package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/deeplink"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

// onStart registers the user and resolves an optional room deep link.
// It always abandons the conversation in progress.
func (m *Machine) onStart(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	sess.reset()
	if _, created, err := m.store.EnsureUser(ctx, ev.UserID); err != nil {
		return nil, err
	} else if created {
		logger.Info(ctx, "service.users", "user.registered",
			slog.String("status", "ok"),
			slog.Int64("user_id", ev.UserID),
		)
	}

	if roomID, ok := deeplink.Resolve(ev.Text); ok {
		room, found, err := m.activeRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if !found {
			return []Reply{send(msgRoomNotFound)}, nil
		}
		sess.begin(StateAwaitingAppealText, m.newID())
		sess.RoomID = room.ID
		return []Reply{sendWith(fmt.Sprintf(msgLeaveAppeal, room.Name), cancelKeyboard())}, nil
	}

	admin, err := m.isAdmin(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if admin {
		return []Reply{sendWith(msgWelcomeAdmin, adminMenu())}, nil
	}
	return []Reply{send(msgWelcomeUser)}, nil
}

func (m *Machine) onAppealText(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	if strings.TrimSpace(ev.Text) == "" {
		return []Reply{send(msgAppealEmpty)}, nil
	}
	room, found, err := m.activeRoom(ctx, sess.RoomID)
	if err != nil {
		return nil, err
	}
	if !found {
		sess.reset()
		return []Reply{send(msgRoomNotFound)}, nil
	}

	// Recipients are resolved first so a failed lookup stores nothing and a
	// retry cannot duplicate the appeal.
	recipients, err := m.recipients(ctx, room)
	if err != nil {
		return nil, err
	}
	appeal, err := m.store.CreateAppeal(ctx, domain.Appeal{
		RoomID:    room.ID,
		AuthorID:  ev.UserID,
		Message:   ev.Text,
		CreatedAt: m.now(),
	})
	if err != nil {
		return nil, err
	}
	sess.reset()

	logger.Info(ctx, "service.appeals", "appeal.created",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.Int64("room_id", room.ID),
		slog.Int64("appeal_id", appeal.ID),
		slog.Int("count", len(recipients)),
	)

	replies := make([]Reply, 0, len(recipients)+1)
	replies = append(replies, send(msgAppealThanks))
	text := fmt.Sprintf(msgNewAppeal, room.Name, appeal.Message)
	for _, id := range recipients {
		replies = append(replies, Reply{Kind: ReplySend, To: id, Text: text})
	}
	return replies, nil
}

// recipients returns the room creator followed by subscribed staff, without
// duplicates.
func (m *Machine) recipients(ctx context.Context, room domain.Room) ([]int64, error) {
	staff, err := m.store.ListNotifyUsers(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	seen := map[int64]struct{}{room.CreatorID: {}}
	out := []int64{room.CreatorID}
	for _, id := range staff {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// activeRoom loads a room and reports false when it is missing or archived.
func (m *Machine) activeRoom(ctx context.Context, id int64) (domain.Room, bool, error) {
	room, err := m.store.GetRoom(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, err
	}
	return room, room.Active(), nil
}
