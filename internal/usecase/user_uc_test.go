//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"glory-ledger/internal/domain"
)

func TestUserUseCase_Create(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	u, err := h.users.Create(ctx, admin, "  Carol ", false, 10, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "Carol" || u.BasicCredits != 10 {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := h.users.Create(ctx, admin, "carol", false, 0, 0); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := h.users.Create(ctx, admin, "", false, 0, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
	if _, err := h.users.Create(ctx, admin, "dave", false, -1, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected negative grant to be refused, got %v", err)
	}

	self := h.seedUser(t, "erin", 0, 0)
	if _, err := h.users.Create(ctx, self, "frank", true, 0, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestUserUseCase_ReadAccess(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.seedUser(t, "alice", 0, 0)
	bob := h.seedUser(t, "bob", 0, 0)

	if _, err := h.users.Get(ctx, alice, alice.UserID); err != nil {
		t.Errorf("self read failed: %v", err)
	}
	if _, err := h.users.Get(ctx, alice, bob.UserID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, err := h.users.List(ctx, alice, "", 0, 10); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden list, got %v", err)
	}

	list, err := h.users.List(ctx, admin, "AL", 0, 10)
	if err != nil || len(list) != 1 || list[0].ID != alice.UserID {
		t.Errorf("expected alice from search, got %v (%v)", list, err)
	}
	n, err := h.users.Count(ctx, admin)
	if err != nil || n != 2 {
		t.Errorf("expected 2 users, got %d (%v)", n, err)
	}
}
