package users

import (
	"context"
	"testing"
)

func TestFindByLoginMatchesUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	created, err := s.Create(ctx, User{Username: "ada", Email: "ada@example.com", Verified: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, login := range []string{"ada", "ada@example.com"} {
		u, ok, err := s.FindByLogin(ctx, login)
		if err != nil || !ok {
			t.Fatalf("FindByLogin(%q) = ok=%v err=%v", login, ok, err)
		}
		if u.ID != created.ID {
			t.Fatalf("FindByLogin(%q).ID = %q, want %q", login, u.ID, created.ID)
		}
	}

	if _, ok, _ := s.FindByLogin(ctx, "nobody"); ok {
		t.Fatalf("FindByLogin should miss unknown login")
	}
}

func TestFindConflictDetectsEitherField(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	if _, err := s.Create(ctx, User{Username: "ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, ok, _ := s.FindConflict(ctx, "ada", "other@example.com"); !ok {
		t.Fatalf("FindConflict should match username")
	}
	if _, ok, _ := s.FindConflict(ctx, "other", "ada@example.com"); !ok {
		t.Fatalf("FindConflict should match email")
	}
	if _, ok, _ := s.FindConflict(ctx, "other", "other@example.com"); ok {
		t.Fatalf("FindConflict should miss fresh credentials")
	}
}

func TestUpsertPendingReplacesOTP(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.UpsertPending(ctx, "ada@example.com", "111111"); err != nil {
		t.Fatalf("UpsertPending() error = %v", err)
	}
	if err := s.UpsertPending(ctx, "ada@example.com", "222222"); err != nil {
		t.Fatalf("UpsertPending() error = %v", err)
	}

	p, ok, err := s.GetPending(ctx, "ada@example.com")
	if err != nil || !ok {
		t.Fatalf("GetPending() = ok=%v err=%v", ok, err)
	}
	if p.OTP != "222222" {
		t.Fatalf("OTP = %q, want replacement", p.OTP)
	}

	if err := s.DeletePending(ctx, "ada@example.com"); err != nil {
		t.Fatalf("DeletePending() error = %v", err)
	}
	if _, ok, _ := s.GetPending(ctx, "ada@example.com"); ok {
		t.Fatalf("pending row should be gone after delete")
	}
}
