package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/storage"
)

func (m *Machine) onAssignStaff(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	sess.reset()
	choices, err := m.roomChoices(ctx, ev.UserID, nil)
	if err != nil {
		return nil, err
	}
	if len(choices) == 0 {
		return []Reply{send(msgNoRooms)}, nil
	}
	sess.begin(StateAwaitingStaffUserID, m.newID())
	sess.Selection = choices
	return []Reply{sendWith(msgAssignStaff, selectionKeyboard(sess.Selection))}, nil
}

func (m *Machine) onStaffUserID(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ev.Text), 10, 64)
	if err != nil {
		return []Reply{send(fmt.Sprintf(msgError, err))}, nil
	}
	if _, err := m.store.GetUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []Reply{send(fmt.Sprintf(msgUserNotRegistered, id))}, nil
		}
		return nil, err
	}
	if !sess.addStaff(id) {
		return []Reply{send(fmt.Sprintf(msgUserAlreadyAdded, id))}, nil
	}
	return []Reply{send(fmt.Sprintf(msgUserAdded, id))}, nil
}

// onToggleRoom flips a room in the selection. A toggle outside the flow
// starts it; a room missing from the selection triggers a refresh from storage.
// A room that is still missing ends a flow the toggle itself started.
func (m *Machine) onToggleRoom(ctx context.Context, sess *Session, ev Event) ([]Reply, error) {
	inFlow := sess.State == StateAwaitingStaffUserID
	if !inFlow {
		sess.begin(StateAwaitingStaffUserID, m.newID())
	}
	if !sess.toggle(ev.RoomID) {
		choices, err := m.roomChoices(ctx, ev.UserID, sess.Selection)
		if err != nil {
			return nil, err
		}
		sess.Selection = choices
		if !sess.toggle(ev.RoomID) {
			if !inFlow || len(sess.Selection) == 0 {
				sess.reset()
				return []Reply{edit(msgRoomNotFound, nil)}, nil
			}
			return []Reply{notice(msgRoomNotFound), editKeyboard(selectionKeyboard(sess.Selection))}, nil
		}
	}
	return []Reply{editKeyboard(selectionKeyboard(sess.Selection))}, nil
}

func (m *Machine) onNotifyDone(ctx context.Context, sess *Session) ([]Reply, error) {
	if sess.State != StateAwaitingStaffUserID {
		return []Reply{edit(msgSelectionExpired, nil)}, nil
	}
	if len(sess.Staff) == 0 {
		return []Reply{notice(msgNeedStaff)}, nil
	}
	rooms := sess.selectedRooms()
	if len(rooms) == 0 {
		return []Reply{notice(msgNeedRooms)}, nil
	}

	created, skipped := 0, 0
	for _, userID := range sess.Staff {
		for _, roomID := range rooms {
			ok, err := m.store.AddNotify(ctx, userID, roomID)
			if err != nil {
				return nil, err
			}
			if ok {
				created++
			} else {
				skipped++
			}
		}
	}
	logger.Info(ctx, "service.notifies", "notify.assigned",
		slog.String("status", "ok"),
		slog.String("flow_id", sess.FlowID),
		slog.Int("count", created),
		slog.Int("skipped", skipped),
	)
	sess.reset()
	return []Reply{edit(fmt.Sprintf(msgStaffAssigned, created, skipped), nil)}, nil
}

// roomChoices lists the admin's active rooms, keeping the selection flags of
// prev for rooms that are still active.
func (m *Machine) roomChoices(ctx context.Context, adminID int64, prev []RoomChoice) ([]RoomChoice, error) {
	rooms, err := m.store.ListActiveRooms(ctx, adminID)
	if err != nil {
		return nil, err
	}
	selected := make(map[int64]bool, len(prev))
	for _, c := range prev {
		selected[c.RoomID] = c.Selected
	}
	choices := make([]RoomChoice, 0, len(rooms))
	for _, room := range rooms {
		choices = append(choices, RoomChoice{RoomID: room.ID, Name: room.Name, Selected: selected[room.ID]})
	}
	return choices, nil
}
