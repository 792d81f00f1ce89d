package flow

import (
	"strconv"
	"strings"
)

// Kind tags an inbound event. Transport adapters decode updates into events
// once; the machine never inspects raw callback data or labels.
type Kind int

const (
	// KindText is free text not matching a command or menu label.
	KindText Kind = iota
	// KindStart is /start with an optional deep link payload in Text.
	KindStart
	// KindGetID is /get_id.
	KindGetID
	// KindAddAdmin is /add_admin <tg_id>; the whole command is kept in Text.
	KindAddAdmin
	// KindCancel is /cancel or the inline Cancel button.
	KindCancel

	// KindMenuAddRoom starts the add-room flow.
	KindMenuAddRoom
	// KindMenuListRooms lists the admin's active rooms.
	KindMenuListRooms
	// KindMenuAssignStaff starts the staff-assignment flow.
	KindMenuAssignStaff

	// KindRoomAppeals shows recent appeals for RoomID.
	KindRoomAppeals
	// KindRoomQR sends the QR code for RoomID.
	KindRoomQR
	// KindRoomDelete asks to confirm archiving RoomID.
	KindRoomDelete
	// KindConfirmDelete archives RoomID.
	KindConfirmDelete
	// KindCancelDelete restores the action menu of RoomID.
	KindCancelDelete
	// KindRoomNotify toggles RoomID in the staff-assignment selection.
	KindRoomNotify
	// KindNotifyDone completes the staff-assignment flow.
	KindNotifyDone
)

var kindNames = map[Kind]string{
	KindText:            "text",
	KindStart:           "start",
	KindGetID:           "get_id",
	KindAddAdmin:        "add_admin",
	KindCancel:          "cancel",
	KindMenuAddRoom:     "menu.add_room",
	KindMenuListRooms:   "menu.list_rooms",
	KindMenuAssignStaff: "menu.assign_staff",
	KindRoomAppeals:     "room_appeals",
	KindRoomQR:          "room_qr",
	KindRoomDelete:      "room_delete",
	KindConfirmDelete:   "confirm_delete",
	KindCancelDelete:    "cancel_delete",
	KindRoomNotify:      "room_notify",
	KindNotifyDone:      "notify_done",
}

// String returns the event kind name used in logs.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is a single inbound interaction from UserID.
type Event struct {
	Kind   Kind
	UserID int64
	Text   string
	RoomID int64
	// Callback is set when the event came from an inline button press.
	Callback bool
}

// Menu labels shown on the admin reply keyboard.
const (
	LabelAddRoom     = "Add room"
	LabelListRooms   = "List rooms"
	LabelAssignStaff = "Assign staff"
)

var menuKinds = map[string]Kind{
	LabelAddRoom:     KindMenuAddRoom,
	LabelListRooms:   KindMenuListRooms,
	LabelAssignStaff: KindMenuAssignStaff,
}

var commandKinds = map[string]Kind{
	"/start":     KindStart,
	"/get_id":    KindGetID,
	"/add_admin": KindAddAdmin,
	"/cancel":    KindCancel,
}

// DecodeMessage turns the text of an inbound message into an event.
func DecodeMessage(userID int64, text string) Event {
	ev := Event{Kind: KindText, UserID: userID, Text: text}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") {
		cmd, _, _ := strings.Cut(strings.Fields(trimmed)[0], "@")
		if kind, ok := commandKinds[strings.ToLower(cmd)]; ok {
			ev.Kind = kind
			return ev
		}
	}
	if kind, ok := menuKinds[trimmed]; ok {
		ev.Kind = kind
	}
	return ev
}

// Callback token actions. Tokens are "<action>_<room_id>", or the bare action
// for kinds that carry no room.
var tokenActions = []struct {
	kind   Kind
	action string
	hasID  bool
}{
	{KindRoomAppeals, "room_appeals", true},
	{KindRoomQR, "room_qr", true},
	{KindRoomDelete, "room_delete", true},
	{KindConfirmDelete, "confirm_delete", true},
	{KindCancelDelete, "cancel_delete", true},
	{KindRoomNotify, "room_notify", true},
	{KindNotifyDone, "notify_done", false},
	{KindCancel, "flow_cancel", false},
}

// Token encodes a callback token for kind and roomID.
func Token(kind Kind, roomID int64) string {
	for _, a := range tokenActions {
		if a.kind != kind {
			continue
		}
		if !a.hasID {
			return a.action
		}
		return a.action + "_" + strconv.FormatInt(roomID, 10)
	}
	return ""
}

// DecodeToken turns callback data produced by Token back into an event.
func DecodeToken(userID int64, data string) (Event, bool) {
	data = strings.TrimSpace(data)
	for _, a := range tokenActions {
		if !a.hasID {
			if data == a.action {
				return Event{Kind: a.kind, UserID: userID, Callback: true}, true
			}
			continue
		}
		rest, ok := strings.CutPrefix(data, a.action+"_")
		if !ok || rest == "" {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Event{}, false
		}
		return Event{Kind: a.kind, UserID: userID, RoomID: id, Callback: true}, true
	}
	return Event{}, false
}
