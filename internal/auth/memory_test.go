package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryAccountLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	accounts := store.Accounts(ctx)

	acct := &Account{
		ID:           "01J",
		Email:        "user@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	if err := accounts.Create(ctx, acct); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := accounts.Create(ctx, acct); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := accounts.FindByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Email != "user@example.com" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected account %+v", got)
	}

	// Mutating the returned copy must not touch the stored record.
	got.PasswordHash = "tampered"
	again, err := accounts.FindByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("find again: %v", err)
	}
	if again.PasswordHash != "hash" {
		t.Fatal("store must hand out copies")
	}

	if _, err := accounts.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryRefreshTokenSwap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	accounts := store.Accounts(ctx)

	if err := accounts.SetRefreshToken(ctx, "nobody@example.com", "tok"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	if err := accounts.Create(ctx, &Account{ID: "01J", Email: "user@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := accounts.SetRefreshToken(ctx, "user@example.com", "first"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := accounts.SwapRefreshToken(ctx, "user@example.com", "wrong", "next"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("expected ErrRefreshRevoked, got %v", err)
	}
	if err := accounts.SwapRefreshToken(ctx, "user@example.com", "first", "second"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	acct, err := accounts.FindByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if acct.RefreshToken != "second" {
		t.Fatalf("unexpected token %q", acct.RefreshToken)
	}
	// First swap consumed the old value.
	if err := accounts.SwapRefreshToken(ctx, "user@example.com", "first", "third"); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("expected ErrRefreshRevoked on replay, got %v", err)
	}
}

func TestMemoryInvitationLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	invitations := store.Invitations(ctx)

	n, err := invitations.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected empty store, got %d, %v", n, err)
	}

	inv := &Invitation{
		ID:        "01J",
		Code:      "CODE1",
		Scope:     RestrictedTo("only@example.com"),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	if err := invitations.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := invitations.Create(ctx, inv); !errors.Is(err, ErrInvitationExists) {
		t.Fatalf("expected ErrInvitationExists, got %v", err)
	}

	got, err := invitations.FindByCode(ctx, "CODE1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if email, ok := got.Scope.BoundEmail(); !ok || email != "only@example.com" {
		t.Fatalf("unexpected scope %q %v", email, ok)
	}

	if err := invitations.Consume(ctx, "CODE1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := invitations.Consume(ctx, "CODE1"); !errors.Is(err, ErrInvitationUsed) {
		t.Fatalf("expected ErrInvitationUsed, got %v", err)
	}
	if err := invitations.Consume(ctx, "NOPE"); !errors.Is(err, ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}

	n, err = invitations.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected count 1, got %d, %v", n, err)
	}
}
