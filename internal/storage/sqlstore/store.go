// Package sqlstore implements storage.Store over sqlx. Queries are written with
// '?' placeholders and rebound for the connected driver (postgres or sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const roomColumns = "id, name, creator_id, is_archived, created_at"

// Store is a storage.Store backed by a SQL database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the time source used for created_at columns.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// GetUser implements storage.Users.
func (s *Store) GetUser(ctx context.Context, tgID int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT tg_id, created_at FROM users WHERE tg_id = ?`), tgID)
	if err != nil {
		return domain.User{}, notFound(err, "get user")
	}
	return u, nil
}

// EnsureUser implements storage.Users.
func (s *Store) EnsureUser(ctx context.Context, tgID int64) (domain.User, bool, error) {
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO users (tg_id, created_at) VALUES (?, ?) ON CONFLICT (tg_id) DO NOTHING`),
		tgID, s.timestamp(),
	)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("ensure user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.User{}, false, fmt.Errorf("ensure user: %w", err)
	}
	u, err := s.GetUser(ctx, tgID)
	if err != nil {
		return domain.User{}, false, err
	}
	return u, n > 0, nil
}

// EnsureRole implements storage.Users.
func (s *Store) EnsureRole(ctx context.Context, name string) (domain.Role, error) {
	if _, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO roles (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), name,
	); err != nil {
		return domain.Role{}, fmt.Errorf("ensure role: %w", err)
	}
	return s.roleByName(ctx, name)
}

func (s *Store) roleByName(ctx context.Context, name string) (domain.Role, error) {
	var r domain.Role
	if err := s.db.GetContext(ctx, &r, s.q(`SELECT id, name FROM roles WHERE name = ?`), name); err != nil {
		return domain.Role{}, notFound(err, "get role")
	}
	return r, nil
}

// GrantRole implements storage.Users.
func (s *Store) GrantRole(ctx context.Context, tgID int64, role string) error {
	r, err := s.roleByName(ctx, role)
	if err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, tgID); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT (user_id, role_id) DO NOTHING`),
		tgID, r.ID,
	)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// HasRole implements storage.Users.
func (s *Store) HasRole(ctx context.Context, tgID int64, role string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ? AND r.name = ?`), tgID, role)
	if err != nil {
		return false, fmt.Errorf("has role: %w", err)
	}
	return n > 0, nil
}

// CreateRoom implements storage.Rooms.
func (s *Store) CreateRoom(ctx context.Context, name string, creatorID int64) (domain.Room, error) {
	room := domain.Room{Name: name, CreatorID: creatorID, CreatedAt: s.timestamp()}
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO rooms (name, creator_id, is_archived, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		room.Name, room.CreatorID, false, room.CreatedAt,
	).Scan(&room.ID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// GetRoom implements storage.Rooms.
func (s *Store) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var room domain.Room
	if err := s.db.GetContext(ctx, &room, s.q(`SELECT `+roomColumns+` FROM rooms WHERE id = ?`), id); err != nil {
		return domain.Room{}, notFound(err, "get room")
	}
	return room, nil
}

// ListActiveRooms implements storage.Rooms.
func (s *Store) ListActiveRooms(ctx context.Context, creatorID int64) ([]domain.Room, error) {
	var rooms []domain.Room
	err := s.db.SelectContext(ctx, &rooms,
		s.q(`SELECT `+roomColumns+` FROM rooms WHERE creator_id = ? AND is_archived = ? ORDER BY id`),
		creatorID, false,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ArchiveRoom implements storage.Rooms.
func (s *Store) ArchiveRoom(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE rooms SET is_archived = ? WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("archive room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive room: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("archive room %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateAppeal implements storage.Appeals.
func (s *Store) CreateAppeal(ctx context.Context, a domain.Appeal) (domain.Appeal, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.timestamp()
	}
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO appeals (room_id, author_id, message, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		a.RoomID, a.AuthorID, a.Message, a.CreatedAt.UTC(),
	).Scan(&a.ID)
	if err != nil {
		return domain.Appeal{}, fmt.Errorf("create appeal: %w", err)
	}
	return a, nil
}

// ListAppeals implements storage.Appeals.
func (s *Store) ListAppeals(ctx context.Context, roomID int64, limit int) ([]domain.Appeal, error) {
	if limit <= 0 {
		limit = 10
	}
	var appeals []domain.Appeal
	err := s.db.SelectContext(ctx, &appeals, s.q(`
		SELECT id, room_id, author_id, message, created_at FROM appeals
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	return appeals, nil
}

// AddNotify implements storage.Notifies.
func (s *Store) AddNotify(ctx context.Context, userID, roomID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO notifies (user_id, room_id) VALUES (?, ?) ON CONFLICT (user_id, room_id) DO NOTHING`),
		userID, roomID,
	)
	if err != nil {
		return false, fmt.Errorf("add notify: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add notify: %w", err)
	}
	return n > 0, nil
}

// ListNotifyUsers implements storage.Notifies.
func (s *Store) ListNotifyUsers(ctx context.Context, roomID int64) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids,
		s.q(`SELECT user_id FROM notifies WHERE room_id = ? ORDER BY user_id`), roomID,
	); err != nil {
		return nil, fmt.Errorf("list notify users: %w", err)
	}
	return ids, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
