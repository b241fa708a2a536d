package auth

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by deployments
// that run without external infrastructure. A single mutex covers both
// collections, which keeps the conditional operations (Consume,
// SwapRefreshToken) trivially atomic.
type MemoryStore struct {
	mu          sync.Mutex
	accounts    map[string]*Account    // keyed by email
	invitations map[string]*Invitation // keyed by code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]*Account),
		invitations: make(map[string]*Invitation),
	}
}

func (m *MemoryStore) Accounts(ctx context.Context) AccountStore       { return &memoryAccounts{m} }
func (m *MemoryStore) Invitations(ctx context.Context) InvitationStore { return &memoryInvitations{m} }
func (m *MemoryStore) Ping(ctx context.Context) error                  { return nil }

type memoryAccounts struct{ m *MemoryStore }

func (a *memoryAccounts) Create(ctx context.Context, acct *Account) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	if _, ok := a.m.accounts[acct.Email]; ok {
		return ErrEmailTaken
	}
	cp := *acct
	a.m.accounts[acct.Email] = &cp
	return nil
}

func (a *memoryAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	acct, ok := a.m.accounts[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (a *memoryAccounts) SetRefreshToken(ctx context.Context, email, token string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	acct, ok := a.m.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	acct.RefreshToken = token
	return nil
}

func (a *memoryAccounts) SwapRefreshToken(ctx context.Context, email, expected, next string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	acct, ok := a.m.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	if acct.RefreshToken != expected {
		return ErrRefreshRevoked
	}
	acct.RefreshToken = next
	return nil
}

type memoryInvitations struct{ m *MemoryStore }

func (i *memoryInvitations) Create(ctx context.Context, inv *Invitation) error {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	if _, ok := i.m.invitations[inv.Code]; ok {
		return ErrInvitationExists
	}
	cp := *inv
	i.m.invitations[inv.Code] = &cp
	return nil
}

func (i *memoryInvitations) FindByCode(ctx context.Context, code string) (*Invitation, error) {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	inv, ok := i.m.invitations[code]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (i *memoryInvitations) Consume(ctx context.Context, code string) error {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	inv, ok := i.m.invitations[code]
	if !ok {
		return ErrInvitationNotFound
	}
	if inv.Used {
		return ErrInvitationUsed
	}
	inv.Used = true
	return nil
}

func (i *memoryInvitations) Count(ctx context.Context) (int, error) {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	return len(i.m.invitations), nil
}
