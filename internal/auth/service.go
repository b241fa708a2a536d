package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"passgate.org/internal/ids"
)

// Default token lifetimes; the access TTL must stay far below the
// refresh TTL.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

const bearerPrefix = "Bearer "

// Service orchestrates registration, login, refresh and validation over a
// Store and a TokenCodec. It holds no other state; all coordination
// between concurrent callers happens through the store's conditional
// writes.
type Service struct {
	store Store
	codec *TokenCodec
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service.
func NewService(store Store, codec *TokenCodec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	svc := &Service{store: store, codec: codec, now: time.Now}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Register creates an account gated by a single-use invitation code and
// issues the first token pair.
func (s *Service) Register(ctx context.Context, email, password, invitationCode string) (TokenPair, error) {
	email = strings.TrimSpace(email)
	invitationCode = strings.TrimSpace(invitationCode)

	accounts := s.store.Accounts(ctx)
	if _, err := accounts.FindByEmail(ctx, email); err == nil {
		return TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return TokenPair{}, err
	}

	invitations := s.store.Invitations(ctx)
	inv, err := invitations.FindByCode(ctx, invitationCode)
	if err != nil {
		return TokenPair{}, err
	}
	if inv.Used {
		return TokenPair{}, ErrInvitationUsed
	}
	if !inv.ExpiresAt.After(s.now()) {
		return TokenPair{}, ErrInvitationExpired
	}
	if !inv.Scope.Allows(email) {
		return TokenPair{}, ErrInvitationEmailMismatch
	}

	// The conditional write is what makes consumption exactly-once under
	// concurrent registrations; the checks above only produce the more
	// specific errors.
	if err := invitations.Consume(ctx, invitationCode); err != nil {
		return TokenPair{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return TokenPair{}, err
	}
	acct := &Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := accounts.Create(ctx, acct); err != nil {
		return TokenPair{}, err
	}

	return s.issuePair(ctx, accounts, email)
}

// Login verifies credentials and issues a fresh token pair, superseding
// any previously issued refresh token for the account.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	accounts := s.store.Accounts(ctx)
	acct, err := accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Deliberately the same error as a bad password so the
			// caller cannot probe for registered emails.
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.issuePair(ctx, accounts, email)
}

// Refresh exchanges a currently-valid refresh token for a new pair,
// rotating the account's stored token. Of two concurrent calls presenting
// the same token exactly one succeeds; the other observes revocation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if claims.TokenType != TokenTypeRefresh {
		return TokenPair{}, ErrWrongTokenType
	}

	accounts := s.store.Accounts(ctx)
	acct, err := accounts.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	if acct.RefreshToken == "" || acct.RefreshToken != refreshToken {
		return TokenPair{}, ErrRefreshRevoked
	}

	access, err := s.codec.IssueAccess(claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	next, err := s.codec.IssueRefresh(claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	if err := accounts.SwapRefreshToken(ctx, claims.Subject, refreshToken, next); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresIn:    int64(s.codec.AccessTTL() / time.Second),
	}, nil
}

// Validate checks a raw Authorization header value. It never fails: every
// bad input collapses to the zero Validation so callers cannot tell an
// expired token from a forged one or an unknown account. Both access and
// refresh tokens validate; callers distinguish by TokenType.
func (s *Service) Validate(ctx context.Context, bearer string) Validation {
	if !strings.HasPrefix(bearer, bearerPrefix) {
		return Validation{}
	}
	claims, err := s.codec.Verify(bearer[len(bearerPrefix):])
	if err != nil {
		return Validation{}
	}
	// The account may have been removed by an administrative action
	// after the token was issued.
	if _, err := s.store.Accounts(ctx).FindByEmail(ctx, claims.Subject); err != nil {
		return Validation{}
	}
	return Validation{Email: claims.Subject, Valid: true, TokenType: claims.TokenType}
}

func (s *Service) issuePair(ctx context.Context, accounts AccountStore, email string) (TokenPair, error) {
	access, err := s.codec.IssueAccess(email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.IssueRefresh(email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := accounts.SetRefreshToken(ctx, email, refresh); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.codec.AccessTTL() / time.Second),
	}, nil
}
