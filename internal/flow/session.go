package flow

import (
	"sync"
	"time"
)

// State identifies a conversation step.
type State string

const (
	// StateIdle means no conversation is in progress.
	StateIdle State = "idle"
	// StateAwaitingRoomName waits for the name of a new room.
	StateAwaitingRoomName State = "awaiting_room_name"
	// StateAwaitingAppealText waits for the appeal message for RoomID.
	StateAwaitingAppealText State = "awaiting_appeal_text"
	// StateAwaitingStaffUserID collects staff ids and a room selection.
	StateAwaitingStaffUserID State = "awaiting_staff_user_id"
)

// RoomChoice is one entry of the staff-assignment room selection.
type RoomChoice struct {
	RoomID   int64
	Name     string
	Selected bool
}

// Session holds the conversation state of one user. Only the fields of the
// current state are meaningful; reset clears the rest.
type Session struct {
	State  State
	FlowID string

	// StateAwaitingAppealText
	RoomID int64

	// StateAwaitingStaffUserID
	Staff     []int64
	Selection []RoomChoice
}

func (s *Session) reset() {
	*s = Session{State: StateIdle}
}

func (s *Session) begin(st State, flowID string) {
	*s = Session{State: st, FlowID: flowID}
}

// addStaff appends id unless it is already collected.
func (s *Session) addStaff(id int64) bool {
	for _, v := range s.Staff {
		if v == id {
			return false
		}
	}
	s.Staff = append(s.Staff, id)
	return true
}

// toggle flips the selection of roomID and reports whether it was found.
func (s *Session) toggle(roomID int64) bool {
	for i := range s.Selection {
		if s.Selection[i].RoomID == roomID {
			s.Selection[i].Selected = !s.Selection[i].Selected
			return true
		}
	}
	return false
}

func (s *Session) selectedRooms() []int64 {
	var ids []int64
	for _, c := range s.Selection {
		if c.Selected {
			ids = append(ids, c.RoomID)
		}
	}
	return ids
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
	touched time.Time
	// dead is set once the entry left the map; holders must re-acquire.
	dead bool
}

// Sessions is an in-memory session store. Each user's session has its own
// lock, so events of one user are processed one at a time while different
// users proceed in parallel. Idle sessions are dropped on release.
type Sessions struct {
	mu      sync.Mutex
	entries map[int64]*sessionEntry
	now     func() time.Time
}

// NewSessions creates an empty store.
func NewSessions() *Sessions {
	return &Sessions{entries: make(map[int64]*sessionEntry), now: time.Now}
}

// Acquire locks the session of userID and returns it together with the
// release function. The session must not be used after release.
func (s *Sessions) Acquire(userID int64) (*Session, func()) {
	for {
		s.mu.Lock()
		e, ok := s.entries[userID]
		if !ok {
			e = &sessionEntry{session: Session{State: StateIdle}, touched: s.now()}
			s.entries[userID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		return &e.session, func() { s.release(userID, e) }
	}
}

func (s *Sessions) release(userID int64, e *sessionEntry) {
	e.touched = s.now()
	if e.session.State == StateIdle {
		e.dead = true
		s.mu.Lock()
		if s.entries[userID] == e {
			delete(s.entries, userID)
		}
		s.mu.Unlock()
	}
	e.mu.Unlock()
}

// Snapshot returns a copy of the user's session, or an idle session.
func (s *Sessions) Snapshot(userID int64) Session {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return Session{State: StateIdle}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return Session{State: StateIdle}
	}
	out := e.session
	out.Staff = append([]int64(nil), e.session.Staff...)
	out.Selection = append([]RoomChoice(nil), e.session.Selection...)
	return out
}

// InProgress reports whether the user has a conversation in progress.
func (s *Sessions) InProgress(userID int64) bool {
	return s.Snapshot(userID).State != StateIdle
}

// Len returns the number of stored sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions untouched since cutoff. Sessions currently held by a
// handler are skipped. It returns the number of dropped sessions.
func (s *Sessions) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.touched.Before(cutoff) {
			e.dead = true
			delete(s.entries, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}
