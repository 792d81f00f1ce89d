// Package storage defines the persistence contract consumed by the bot.
package storage

import (
	"context"
	"errors"

	"github.com/m3rciful/facilitybot/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("storage: conflict")
)

// Users persists Telegram accounts and their roles.
type Users interface {
	GetUser(ctx context.Context, tgID int64) (domain.User, error)
	// EnsureUser returns the user, creating it when missing.
	EnsureUser(ctx context.Context, tgID int64) (domain.User, bool, error)
	// EnsureRole returns the role with the given name, creating it when missing.
	EnsureRole(ctx context.Context, name string) (domain.Role, error)
	// GrantRole attaches a role to a user. Granting an existing role is a no-op.
	GrantRole(ctx context.Context, tgID int64, role string) error
	HasRole(ctx context.Context, tgID int64, role string) (bool, error)
}

// Rooms persists rooms. Rooms are archived, never deleted.
type Rooms interface {
	CreateRoom(ctx context.Context, name string, creatorID int64) (domain.Room, error)
	GetRoom(ctx context.Context, id int64) (domain.Room, error)
	// ListActiveRooms returns the creator's non-archived rooms ordered by id.
	ListActiveRooms(ctx context.Context, creatorID int64) ([]domain.Room, error)
	ArchiveRoom(ctx context.Context, id int64) error
}

// Appeals persists issue reports.
type Appeals interface {
	CreateAppeal(ctx context.Context, a domain.Appeal) (domain.Appeal, error)
	// ListAppeals returns up to limit appeals for the room, newest first.
	ListAppeals(ctx context.Context, roomID int64, limit int) ([]domain.Appeal, error)
}

// Notifies persists staff assignments.
type Notifies interface {
	// AddNotify creates the assignment and reports false when it already existed.
	AddNotify(ctx context.Context, userID, roomID int64) (bool, error)
	// ListNotifyUsers returns ids of staff assigned to the room, ascending.
	ListNotifyUsers(ctx context.Context, roomID int64) ([]int64, error)
}

// Store aggregates every repository used by the bot.
type Store interface {
	Users
	Rooms
	Appeals
	Notifies
	Close() error
}
