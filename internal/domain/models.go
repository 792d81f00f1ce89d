// Package domain holds the persistent entities of the facility bot.
package domain

import "time"

// Role names seeded at bootstrap.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// User is a Telegram account known to the bot. The Telegram id is the primary key.
type User struct {
	TgID      int64     `db:"tg_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Role is a named privilege.
type Role struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Room is a physical location occupants can report issues about.
type Room struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	CreatorID  int64     `db:"creator_id"`
	IsArchived bool      `db:"is_archived"`
	CreatedAt  time.Time `db:"created_at"`
}

// Active reports whether the room may be listed or reached via a deep link.
func (r Room) Active() bool {
	return !r.IsArchived
}

// Appeal is an issue report left by an occupant. Appeals are never modified.
type Appeal struct {
	ID        int64     `db:"id"`
	RoomID    int64     `db:"room_id"`
	AuthorID  int64     `db:"author_id"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// Notify designates a staff user to receive appeals for a room.
type Notify struct {
	ID     int64 `db:"id"`
	UserID int64 `db:"user_id"`
	RoomID int64 `db:"room_id"`
}
