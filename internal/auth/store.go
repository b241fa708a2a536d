package auth

import "context"

// Store bundles the persistence surfaces required by the auth service.
type Store interface {
	Accounts(ctx context.Context) AccountStore
	Invitations(ctx context.Context) InvitationStore
	Ping(ctx context.Context) error
}

// AccountStore manages accounts keyed by email.
//
// SwapRefreshToken is the only coordination primitive the service relies
// on for refresh rotation: it must be atomic with respect to concurrent
// swaps on the same account.
type AccountStore interface {
	// Create persists a new account. ErrEmailTaken when the email is
	// already registered, including under concurrent creation.
	Create(ctx context.Context, a *Account) error
	// FindByEmail returns the account or ErrAccountNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// SetRefreshToken unconditionally replaces the current refresh token.
	SetRefreshToken(ctx context.Context, email, token string) error
	// SwapRefreshToken replaces the current refresh token only while it
	// still equals expected. ErrRefreshRevoked on mismatch.
	SwapRefreshToken(ctx context.Context, email, expected, next string) error
}

// InvitationStore manages invitation codes keyed by code.
type InvitationStore interface {
	// Create persists a new invitation. ErrInvitationExists on a
	// duplicate code.
	Create(ctx context.Context, inv *Invitation) error
	// FindByCode returns the invitation or ErrInvitationNotFound.
	FindByCode(ctx context.Context, code string) (*Invitation, error)
	// Consume marks the invitation used only while it is still unused.
	// ErrInvitationUsed when another caller consumed it first; this is
	// what makes consumption exactly-once under concurrency.
	Consume(ctx context.Context, code string) error
	// Count reports the number of stored invitations.
	Count(ctx context.Context) (int, error)
}
