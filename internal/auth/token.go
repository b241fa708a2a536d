package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type tags carried in the "type" claim. The tag strictly gates
// which operation accepts the token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenMalformed indicates the token could not be parsed or its
	// signature did not verify.
	ErrTokenMalformed = errors.New("auth: token malformed")
	// ErrTokenExpired indicates a well-formed, correctly signed token
	// whose expiry has passed.
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenClaims is the payload carried inside a signed token.
type TokenClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HMAC-signed tokens (HS256) using a
// process-wide symmetric key.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec constructs a codec. The secret must be at least 32 bytes
// and both TTLs must be positive.
func NewTokenCodec(secret []byte, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: token secret must be at least 32 bytes")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be greater than zero")
	}
	return &TokenCodec{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccess signs a short-lived access token for the subject.
func (c *TokenCodec) IssueAccess(subject string) (string, error) {
	return c.issue(subject, TokenTypeAccess, c.accessTTL)
}

// IssueRefresh signs a refresh token for the subject.
func (c *TokenCodec) IssueRefresh(subject string) (string, error) {
	return c.issue(subject, TokenTypeRefresh, c.refreshTTL)
}

func (c *TokenCodec) issue(subject, tokenType string, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := TokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// Unique per token so that two issues at the same instant
			// never produce equal strings; rotation compares tokens by
			// exact equality.
			ID: uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature integrity, then expiry. A forged token always
// fails as malformed regardless of its expiry.
func (c *TokenCodec) Verify(token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
