package flow

import (
	"sync"
	"testing"
	"time"
)

func TestSessionsDropIdleOnRelease(t *testing.T) {
	s := NewSessions()
	sess, release := s.Acquire(1)
	if sess.State != StateIdle {
		t.Fatalf("new session state %s", sess.State)
	}
	release()
	if s.Len() != 0 {
		t.Fatalf("idle session kept, len %d", s.Len())
	}

	sess, release = s.Acquire(1)
	sess.begin(StateAwaitingRoomName, "f1")
	release()
	if s.Len() != 1 || !s.InProgress(1) {
		t.Fatal("session in progress should be kept")
	}
	if got := s.Snapshot(1); got.State != StateAwaitingRoomName || got.FlowID != "f1" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestSessionsSerializePerUser(t *testing.T) {
	s := NewSessions()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := s.Acquire(7)
			defer release()
			if sess.State == StateIdle {
				sess.begin(StateAwaitingStaffUserID, "f")
			}
			sess.Staff = append(sess.Staff, int64(len(sess.Staff)))
		}()
	}
	wg.Wait()
	if got := len(s.Snapshot(7).Staff); got != 50 {
		t.Fatalf("expected 50 serialized appends, got %d", got)
	}
}

func TestSessionsSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions()
	s.now = func() time.Time { return now }

	for _, id := range []int64{1, 2} {
		sess, release := s.Acquire(id)
		sess.begin(StateAwaitingRoomName, "f")
		release()
	}
	now = now.Add(time.Hour)
	sess, release := s.Acquire(2)
	sess.begin(StateAwaitingRoomName, "g")
	release()

	held, releaseHeld := s.Acquire(3)
	held.begin(StateAwaitingRoomName, "h")

	if n := s.Sweep(now.Add(-time.Minute)); n != 1 {
		t.Fatalf("swept %d; expected 1", n)
	}
	releaseHeld()
	if s.InProgress(1) {
		t.Fatal("stale session should be dropped")
	}
	if !s.InProgress(2) || !s.InProgress(3) {
		t.Fatal("fresh and held sessions must survive")
	}
}

func TestSessionSelection(t *testing.T) {
	var s Session
	s.Selection = []RoomChoice{{RoomID: 1}, {RoomID: 2}}
	if !s.toggle(2) || s.toggle(3) {
		t.Fatal("toggle should report presence")
	}
	if got := s.selectedRooms(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("selected %v", got)
	}
	if !s.addStaff(5) || s.addStaff(5) {
		t.Fatal("addStaff should dedupe")
	}
	s.reset()
	if s.State != StateIdle || s.Staff != nil || s.Selection != nil {
		t.Fatalf("reset left data %+v", s)
	}
}
