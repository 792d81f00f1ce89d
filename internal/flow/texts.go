package flow

import (
	"errors"
	"strconv"
	"strings"
)

const (
	msgWelcomeAdmin    = "Welcome! Use the menu below to manage rooms."
	msgWelcomeUser     = "Welcome! Scan the QR code in a room to leave an appeal."
	msgChooseAction    = "Choose an action from the menu below."
	msgScanQR          = "Scan the QR code in a room to leave an appeal."
	msgYourID          = "Your ID: `%d`"
	msgAccessDenied    = "Access denied."
	msgUnsupported     = "Unsupported action."
	msgInternalError   = "Something went wrong. Please try again."
	msgCancelled       = "Cancelled."
	msgNothingToCancel = "Nothing to cancel."
	msgError           = "Error: %v"
	msgAdminGranted    = "User %d is now an admin."

	msgEnterRoomName   = "Enter the room name:"
	msgRoomNameEmpty   = "Room name cannot be empty. Enter the room name:"
	msgRoomNameTooLong = "Room name is too long (max %d characters). Enter the room name:"
	msgRoomAdded       = "Room '%s' added!"
	msgNoRooms         = "No rooms available."
	msgRoomCard        = "Room: %s"
	msgRoomNotFound    = "Room not found."
	msgRoomDeleted     = "Room '%s' deleted."
	msgNoAppeals       = "No appeals for room '%s' yet."
	msgAppealsHeader   = "Recent appeals for room '%s':"
	msgQRCaption       = "QR code for room: %s\nURL: %s"

	msgLeaveAppeal  = "Describe the problem in room '%s':"
	msgAppealEmpty  = "The appeal cannot be empty. Describe the problem:"
	msgAppealThanks = "Thank you! Your appeal has been sent."
	msgNewAppeal    = "New appeal for room '%s':\n\n%s"

	msgAssignStaff       = "Send the Telegram IDs of staff members one per message, select rooms below and press Done."
	msgUserNotRegistered = "User with ID %d is not registered. Ask them to send /start to the bot first."
	msgUserAlreadyAdded  = "User with ID %d is already in the list."
	msgUserAdded         = "User with ID %d added. Send another ID or select rooms and press Done."
	msgNeedStaff         = "Add at least one user first."
	msgNeedRooms         = "Select at least one room."
	msgSelectionExpired  = "This selection has expired. Start again from the menu."
	msgStaffAssigned     = "Staff assigned: %d new, %d already existed."
)

const (
	labelAppeals       = "📋 Appeals"
	labelQR            = "🔳 QR code"
	labelDelete        = "🗑 Delete"
	labelConfirmDelete = "✅ Yes, delete"
	labelCancelDelete  = "↩️ No"
	labelDone          = "✅ Done"
	labelCancel        = "❌ Cancel"
	markSelected       = "✅ "
	markUnselected     = "⬜ "
)

func adminMenu() *Keyboard {
	return &Keyboard{Menu: [][]string{
		{LabelAddRoom, LabelListRooms},
		{LabelAssignStaff},
	}}
}

func cancelKeyboard() *Keyboard {
	return &Keyboard{Inline: [][]Button{{{Label: labelCancel, Token: Token(KindCancel, 0)}}}}
}

func roomActions(roomID int64) *Keyboard {
	return &Keyboard{Inline: [][]Button{
		{
			{Label: labelAppeals, Token: Token(KindRoomAppeals, roomID)},
			{Label: labelQR, Token: Token(KindRoomQR, roomID)},
		},
		{{Label: labelDelete, Token: Token(KindRoomDelete, roomID)}},
	}}
}

func confirmDelete(roomID int64) *Keyboard {
	return &Keyboard{Inline: [][]Button{{
		{Label: labelConfirmDelete, Token: Token(KindConfirmDelete, roomID)},
		{Label: labelCancelDelete, Token: Token(KindCancelDelete, roomID)},
	}}}
}

func selectionKeyboard(choices []RoomChoice) *Keyboard {
	rows := make([][]Button, 0, len(choices)+1)
	for _, c := range choices {
		mark := markUnselected
		if c.Selected {
			mark = markSelected
		}
		rows = append(rows, []Button{{Label: mark + c.Name, Token: Token(KindRoomNotify, c.RoomID)}})
	}
	rows = append(rows, []Button{
		{Label: labelDone, Token: Token(KindNotifyDone, 0)},
		{Label: labelCancel, Token: Token(KindCancel, 0)},
	})
	return &Keyboard{Inline: rows}
}

// parseCommandID reads the numeric argument of a command such as
// "/add_admin 123".
func parseCommandID(text string) (int64, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, errors.New("usage: /add_admin <telegram_id>")
	}
	return strconv.ParseInt(fields[1], 10, 64)
}
