package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
)

func TestGrantRoleRequiresUserAndRole(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.GrantRole(ctx, 1, domain.RoleAdmin); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
	if _, _, err := s.EnsureUser(ctx, 1); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := s.GrantRole(ctx, 1, domain.RoleAdmin); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing role, got %v", err)
	}
	if _, err := s.EnsureRole(ctx, domain.RoleAdmin); err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if err := s.GrantRole(ctx, 1, domain.RoleAdmin); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	if ok, _ := s.HasRole(ctx, 1, domain.RoleAdmin); !ok {
		t.Fatal("expected admin role")
	}
	if ok, _ := s.HasRole(ctx, 1, domain.RoleEmployee); ok {
		t.Fatal("unexpected employee role")
	}
}

func TestEnsureUserReportsCreation(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, created, _ := s.EnsureUser(ctx, 5); !created {
		t.Fatal("first EnsureUser should create")
	}
	if _, created, _ := s.EnsureUser(ctx, 5); created {
		t.Fatal("second EnsureUser should not create")
	}
}

func TestAppealsNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	room, _ := s.CreateRoom(ctx, "Kitchen", 1)
	for i, msg := range []string{"a", "b", "c"} {
		if _, err := s.CreateAppeal(ctx, domain.Appeal{
			RoomID: room.ID, AuthorID: 2, Message: msg, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("CreateAppeal: %v", err)
		}
	}
	got, _ := s.ListAppeals(ctx, room.ID, 2)
	if len(got) != 2 || got[0].Message != "c" || got[1].Message != "b" {
		t.Fatalf("unexpected appeals %+v", got)
	}
	if _, err := s.CreateAppeal(ctx, domain.Appeal{RoomID: 99, Message: "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing room, got %v", err)
	}
}

func TestArchiveAndNotifies(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.CreateRoom(ctx, "A", 1)
	b, _ := s.CreateRoom(ctx, "B", 1)
	if err := s.ArchiveRoom(ctx, a.ID); err != nil {
		t.Fatalf("ArchiveRoom: %v", err)
	}
	rooms, _ := s.ListActiveRooms(ctx, 1)
	if len(rooms) != 1 || rooms[0].ID != b.ID {
		t.Fatalf("unexpected active rooms %+v", rooms)
	}
	if err := s.ArchiveRoom(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if created, _ := s.AddNotify(ctx, 3, b.ID); !created {
		t.Fatal("first AddNotify should create")
	}
	if created, _ := s.AddNotify(ctx, 3, b.ID); created {
		t.Fatal("duplicate AddNotify should be skipped")
	}
	s.AddNotify(ctx, 2, b.ID)
	ids, _ := s.ListNotifyUsers(ctx, b.ID)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("unexpected notify users %v", ids)
	}
}
