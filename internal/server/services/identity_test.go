package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

func TestGetOrCreate_FirstContactAssignsCode(t *testing.T) {
	db := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	s := NewIdentityService(db, rm)

	user, err := s.GetOrCreate(context.Background(), "ext-1", "Alice")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if len(user.Code) != publicCodeLength {
		t.Fatalf("code length mismatch: %q", user.Code)
	}
	if user.DisplayName != "Alice" || !user.Active {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestGetOrCreate_SecondContactKeepsCode(t *testing.T) {
	db := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	s := NewIdentityService(db, rm)

	first, err := s.GetOrCreate(context.Background(), "ext-1", "Alice")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	second, err := s.GetOrCreate(context.Background(), "ext-1", "Alice")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if first.ID != second.ID || first.Code != second.Code {
		t.Fatalf("identity not stable: %+v vs %+v", first, second)
	}
}

func TestGetOrCreate_RefreshesDisplayName(t *testing.T) {
	db := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	s := NewIdentityService(db, rm)

	if _, err := s.GetOrCreate(context.Background(), "ext-1", "Alice"); err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	user, err := s.GetOrCreate(context.Background(), "ext-1", "Alicia")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if user.DisplayName != "Alicia" {
		t.Fatalf("display name not refreshed: %q", user.DisplayName)
	}
}

func TestGetOrCreate_CreateRaceFallsBackToGet(t *testing.T) {
	db := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	existing := rm.users.add(&models.User{ExternalID: "ext-1", Code: "abc12345", Active: true})
	// first lookup misses, Create collides with the existing row, second
	// lookup returns it
	rm.users.getMisses = 1

	s := NewIdentityService(db, rm)

	user, err := s.GetOrCreate(context.Background(), "ext-1", "")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if user.ID != existing.ID {
		t.Fatalf("expected existing user, got %+v", user)
	}
}

func TestLookupByCode_NotFound(t *testing.T) {
	db := newSQLMockDB(t)
	defer db.Close()

	s := NewIdentityService(db, newFakeRepoManager())

	_, err := s.LookupByCode(context.Background(), "nope1234")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
