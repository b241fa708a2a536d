package auth

import "errors"

var (
	ErrEmailTaken              = errors.New("auth: email already registered")
	ErrInvitationNotFound      = errors.New("auth: invitation code not found")
	ErrInvitationExists        = errors.New("auth: invitation code already exists")
	ErrInvitationUsed          = errors.New("auth: invitation code already used")
	ErrInvitationExpired       = errors.New("auth: invitation code expired")
	ErrInvitationEmailMismatch = errors.New("auth: invitation is bound to a different email")
	ErrInvalidCredentials      = errors.New("auth: invalid email or password")
	ErrInvalidRefreshToken     = errors.New("auth: invalid refresh token")
	ErrWrongTokenType          = errors.New("auth: wrong token type")
	ErrAccountNotFound         = errors.New("auth: account not found")
	ErrRefreshRevoked          = errors.New("auth: refresh token revoked")
	ErrStoreUnavailable        = errors.New("auth: store unavailable")
)
