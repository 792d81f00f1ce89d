// Package memstore is an in-memory storage.Store used by tests and the
// "memory" database driver. Data does not survive a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

type notifyKey struct {
	userID int64
	roomID int64
}

// Store keeps every record in maps guarded by a single RWMutex.
type Store struct {
	mu sync.RWMutex

	now func() time.Time

	users     map[int64]domain.User
	roles     map[string]domain.Role
	userRoles map[int64]map[int64]struct{}
	rooms     map[int64]domain.Room
	appeals   []domain.Appeal
	notifies  map[notifyKey]domain.Notify

	nextRoom   int64
	nextRole   int64
	nextAppeal int64
	nextNotify int64
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:       time.Now,
		users:     make(map[int64]domain.User),
		roles:     make(map[string]domain.Role),
		userRoles: make(map[int64]map[int64]struct{}),
		rooms:     make(map[int64]domain.Room),
		notifies:  make(map[notifyKey]domain.Notify),
	}
}

// WithClock replaces the time source used for created_at columns.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// GetUser implements storage.Users.
func (s *Store) GetUser(_ context.Context, tgID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[tgID]
	if !ok {
		return domain.User{}, storage.ErrNotFound
	}
	return u, nil
}

// EnsureUser implements storage.Users.
func (s *Store) EnsureUser(_ context.Context, tgID int64) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[tgID]; ok {
		return u, false, nil
	}
	u := domain.User{TgID: tgID, CreatedAt: s.now()}
	s.users[tgID] = u
	return u, true, nil
}

// EnsureRole implements storage.Users.
func (s *Store) EnsureRole(_ context.Context, name string) (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureRoleLocked(name), nil
}

func (s *Store) ensureRoleLocked(name string) domain.Role {
	if r, ok := s.roles[name]; ok {
		return r
	}
	s.nextRole++
	r := domain.Role{ID: s.nextRole, Name: name}
	s.roles[name] = r
	return r
}

// GrantRole implements storage.Users.
func (s *Store) GrantRole(_ context.Context, tgID int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[tgID]; !ok {
		return storage.ErrNotFound
	}
	r, ok := s.roles[role]
	if !ok {
		return storage.ErrNotFound
	}
	set, ok := s.userRoles[tgID]
	if !ok {
		set = make(map[int64]struct{})
		s.userRoles[tgID] = set
	}
	set[r.ID] = struct{}{}
	return nil
}

// HasRole implements storage.Users.
func (s *Store) HasRole(_ context.Context, tgID int64, role string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[role]
	if !ok {
		return false, nil
	}
	_, has := s.userRoles[tgID][r.ID]
	return has, nil
}

// CreateRoom implements storage.Rooms.
func (s *Store) CreateRoom(_ context.Context, name string, creatorID int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRoom++
	room := domain.Room{
		ID:        s.nextRoom,
		Name:      name,
		CreatorID: creatorID,
		CreatedAt: s.now(),
	}
	s.rooms[room.ID] = room
	return room, nil
}

// GetRoom implements storage.Rooms.
func (s *Store) GetRoom(_ context.Context, id int64) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, storage.ErrNotFound
	}
	return room, nil
}

// ListActiveRooms implements storage.Rooms.
func (s *Store) ListActiveRooms(_ context.Context, creatorID int64) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Room
	for _, room := range s.rooms {
		if room.CreatorID == creatorID && room.Active() {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ArchiveRoom implements storage.Rooms.
func (s *Store) ArchiveRoom(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return storage.ErrNotFound
	}
	room.IsArchived = true
	s.rooms[id] = room
	return nil
}

// CreateAppeal implements storage.Appeals.
func (s *Store) CreateAppeal(_ context.Context, a domain.Appeal) (domain.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[a.RoomID]; !ok {
		return domain.Appeal{}, storage.ErrNotFound
	}
	s.nextAppeal++
	a.ID = s.nextAppeal
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.appeals = append(s.appeals, a)
	return a, nil
}

// ListAppeals implements storage.Appeals.
func (s *Store) ListAppeals(_ context.Context, roomID int64, limit int) ([]domain.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Appeal
	for i := len(s.appeals) - 1; i >= 0; i-- {
		if s.appeals[i].RoomID == roomID {
			out = append(out, s.appeals[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Appeals returns a copy of every stored appeal in insertion order.
func (s *Store) Appeals() []domain.Appeal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Appeal(nil), s.appeals...)
}

// AddNotify implements storage.Notifies.
func (s *Store) AddNotify(_ context.Context, userID, roomID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := notifyKey{userID: userID, roomID: roomID}
	if _, ok := s.notifies[key]; ok {
		return false, nil
	}
	s.nextNotify++
	s.notifies[key] = domain.Notify{ID: s.nextNotify, UserID: userID, RoomID: roomID}
	return true, nil
}

// ListNotifyUsers implements storage.Notifies.
func (s *Store) ListNotifyUsers(_ context.Context, roomID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for key := range s.notifies {
		if key.roomID == roomID {
			out = append(out, key.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// NotifyCount returns the number of stored assignments.
func (s *Store) NotifyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifies)
}
