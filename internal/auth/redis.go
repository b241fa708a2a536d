package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	acctKeyPrefix   = "acct:"
	inviteKeyPrefix = "invite:"
	inviteIndexKey  = "invite:index"
)

// Script results: 0 = key missing, 1 = precondition failed, 2 = applied.
var (
	setRefreshScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local acct = cjson.decode(raw)
acct.refresh_token = ARGV[1]
redis.call("SET", KEYS[1], cjson.encode(acct))
return 2`)

	swapRefreshScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local acct = cjson.decode(raw)
if (acct.refresh_token or "") ~= ARGV[1] then return 1 end
acct.refresh_token = ARGV[2]
redis.call("SET", KEYS[1], cjson.encode(acct))
return 2`)

	consumeInviteScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local inv = cjson.decode(raw)
if inv.used then return 1 end
inv.used = true
redis.call("SET", KEYS[1], cjson.encode(inv))
return 2`)
)

type redisAccountDoc struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
}

type redisInvitationDoc struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Email     string    `json:"email,omitempty"`
	Bound     bool      `json:"bound"`
	Used      bool      `json:"used"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore keeps accounts and invitations as JSON documents. The
// conditional mutations run as Lua scripts so the read-check-write cycle
// is atomic on the server.
type RedisStore struct {
	client redis.UniversalClient
}

func OpenRedis(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisStore wraps an existing client, mainly for tests.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Accounts(ctx context.Context) AccountStore {
	return &redisAccounts{s.client}
}

func (s *RedisStore) Invitations(ctx context.Context) InvitationStore {
	return &redisInvitations{s.client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

type redisAccounts struct {
	client redis.UniversalClient
}

func (a *redisAccounts) Create(ctx context.Context, acct *Account) error {
	doc := redisAccountDoc{
		ID:           acct.ID,
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		RefreshToken: acct.RefreshToken,
		CreatedAt:    acct.CreatedAt,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	ok, err := a.client.SetNX(ctx, acctKeyPrefix+acct.Email, raw, 0).Result()
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrEmailTaken
	}
	return nil
}

func (a *redisAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	raw, err := a.client.Get(ctx, acctKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	var doc redisAccountDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &Account{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		RefreshToken: doc.RefreshToken,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (a *redisAccounts) SetRefreshToken(ctx context.Context, email, token string) error {
	n, err := setRefreshScript.Run(ctx, a.client, []string{acctKeyPrefix + email}, token).Int()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (a *redisAccounts) SwapRefreshToken(ctx context.Context, email, expected, next string) error {
	n, err := swapRefreshScript.Run(ctx, a.client, []string{acctKeyPrefix + email}, expected, next).Int()
	if err != nil {
		return storeErr(err)
	}
	switch n {
	case 0:
		return ErrAccountNotFound
	case 1:
		return ErrRefreshRevoked
	}
	return nil
}

type redisInvitations struct {
	client redis.UniversalClient
}

func (i *redisInvitations) Create(ctx context.Context, inv *Invitation) error {
	email, bound := inv.Scope.BoundEmail()
	doc := redisInvitationDoc{
		ID:        inv.ID,
		Code:      inv.Code,
		Email:     email,
		Bound:     bound,
		Used:      inv.Used,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	ok, err := i.client.SetNX(ctx, inviteKeyPrefix+inv.Code, raw, 0).Result()
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrInvitationExists
	}
	if err := i.client.SAdd(ctx, inviteIndexKey, inv.Code).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (i *redisInvitations) FindByCode(ctx context.Context, code string) (*Invitation, error) {
	raw, err := i.client.Get(ctx, inviteKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	var doc redisInvitationDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	scope := AnyEmail()
	if doc.Bound {
		scope = RestrictedTo(doc.Email)
	}
	return &Invitation{
		ID:        doc.ID,
		Code:      doc.Code,
		Scope:     scope,
		Used:      doc.Used,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (i *redisInvitations) Consume(ctx context.Context, code string) error {
	n, err := consumeInviteScript.Run(ctx, i.client, []string{inviteKeyPrefix + code}).Int()
	if err != nil {
		return storeErr(err)
	}
	switch n {
	case 0:
		return ErrInvitationNotFound
	case 1:
		return ErrInvitationUsed
	}
	return nil
}

func (i *redisInvitations) Count(ctx context.Context) (int, error) {
	n, err := i.client.SCard(ctx, inviteIndexKey).Result()
	if err != nil {
		return 0, storeErr(err)
	}
	return int(n), nil
}
