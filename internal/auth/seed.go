package auth

import (
	"context"
	"time"

	"passgate.org/internal/ids"
)

const seedInvitationTTL = 30 * 24 * time.Hour

// SeedInvitations bootstraps a fresh deployment with a pair of starter
// invitation codes. It is a no-op when any invitation already exists so
// restarts never resurrect consumed codes.
func SeedInvitations(ctx context.Context, store Store, now time.Time) error {
	invitations := store.Invitations(ctx)
	n, err := invitations.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	seeds := []*Invitation{
		{
			ID:        ids.New(),
			Code:      "WELCOME2024",
			Scope:     AnyEmail(),
			ExpiresAt: now.Add(seedInvitationTTL).UTC(),
			CreatedAt: now.UTC(),
		},
		{
			ID:        ids.New(),
			Code:      "FOR_DESHIK",
			Scope:     RestrictedTo("deshik@example.com"),
			ExpiresAt: now.Add(seedInvitationTTL).UTC(),
			CreatedAt: now.UTC(),
		},
	}
	for _, inv := range seeds {
		if err := invitations.Create(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}
