package auth

import "time"

// Account represents a registered user, keyed by email.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	RefreshToken string // empty until the first token pair is issued
	CreatedAt    time.Time
}

// InvitationScope restricts who may consume an invitation. The zero value
// accepts any email.
type InvitationScope struct {
	email      string
	restricted bool
}

// AnyEmail returns a scope that accepts any registrant.
func AnyEmail() InvitationScope {
	return InvitationScope{}
}

// RestrictedTo returns a scope that accepts only the given email.
func RestrictedTo(email string) InvitationScope {
	return InvitationScope{email: email, restricted: true}
}

// Allows reports whether the given email may consume the invitation.
func (s InvitationScope) Allows(email string) bool {
	return !s.restricted || s.email == email
}

// BoundEmail returns the restricting email and whether one is set.
func (s InvitationScope) BoundEmail() (string, bool) {
	return s.email, s.restricted
}

// Invitation is a single-use registration credential, keyed by code.
type Invitation struct {
	ID        string
	Code      string
	Scope     InvitationScope
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair carries a freshly issued access/refresh token pair along with
// the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Validation is the total result of a bearer check. Every failure mode
// collapses to the zero value so callers cannot tell them apart.
type Validation struct {
	Email     string
	Valid     bool
	TokenType string
}
