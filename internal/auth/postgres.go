package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore persists accounts and invitations in Postgres. Conditional
// updates carry the concurrency contract: a rotation or consumption that
// matches zero rows lost the race.
type PGStore struct {
	db *sql.DB
}

func OpenPG(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an existing handle, mainly for tests.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Accounts(ctx context.Context) AccountStore       { return &pgAccounts{s.db} }
func (s *PGStore) Invitations(ctx context.Context) InvitationStore { return &pgInvitations{s.db} }

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type pgAccounts struct {
	db *sql.DB
}

func (a *pgAccounts) Create(ctx context.Context, acct *Account) error {
	_, err := a.db.ExecContext(ctx, `
		insert into accounts(id, email, password_hash, refresh_token, created_at)
		values ($1,$2,$3,nullif($4,''),$5)
	`, acct.ID, acct.Email, acct.PasswordHash, acct.RefreshToken, acct.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (a *pgAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var acct Account
	var refresh sql.NullString
	err := a.db.QueryRowContext(ctx, `
		select id, email, password_hash, refresh_token, created_at
		from accounts where email=$1
	`, email).Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &refresh, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	acct.RefreshToken = refresh.String
	return &acct, nil
}

func (a *pgAccounts) SetRefreshToken(ctx context.Context, email, token string) error {
	res, err := a.db.ExecContext(ctx,
		`update accounts set refresh_token=$1 where email=$2`, token, email)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (a *pgAccounts) SwapRefreshToken(ctx context.Context, email, expected, next string) error {
	res, err := a.db.ExecContext(ctx, `
		update accounts set refresh_token=$1
		where email=$2 and refresh_token=$3
	`, next, email, expected)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return ErrRefreshRevoked
	}
	return nil
}

type pgInvitations struct {
	db *sql.DB
}

func (i *pgInvitations) Create(ctx context.Context, inv *Invitation) error {
	email, bound := inv.Scope.BoundEmail()
	_, err := i.db.ExecContext(ctx, `
		insert into invitations(id, code, email, used, expires_at, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, inv.ID, inv.Code, nullString(email, bound), inv.Used, inv.ExpiresAt, inv.CreatedAt)
	if isUniqueViolation(err) {
		return ErrInvitationExists
	}
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (i *pgInvitations) FindByCode(ctx context.Context, code string) (*Invitation, error) {
	var inv Invitation
	var email sql.NullString
	err := i.db.QueryRowContext(ctx, `
		select id, code, email, used, expires_at, created_at
		from invitations where code=$1
	`, code).Scan(&inv.ID, &inv.Code, &email, &inv.Used, &inv.ExpiresAt, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if email.Valid {
		inv.Scope = RestrictedTo(email.String)
	} else {
		inv.Scope = AnyEmail()
	}
	return &inv, nil
}

func (i *pgInvitations) Consume(ctx context.Context, code string) error {
	res, err := i.db.ExecContext(ctx,
		`update invitations set used=true where code=$1 and used=false`, code)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		// Either the code never existed or someone consumed it first;
		// callers have already resolved existence, so report the race.
		return ErrInvitationUsed
	}
	return nil
}

func (i *pgInvitations) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `select count(*) from invitations`).Scan(&n); err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func nullString(s string, valid bool) sql.NullString {
	return sql.NullString{String: s, Valid: valid}
}
