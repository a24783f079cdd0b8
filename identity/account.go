package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
)

// Account is a stored credential. ID is the stable identity id used as document key.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountStore persists accounts. Emails are unique.
type AccountStore interface {
	Create(ctx context.Context, a Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	// Delete removes the account with id. Deleting a missing account is not an error.
	Delete(ctx context.Context, id string) error
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryAccounts is an in-process AccountStore.
type MemoryAccounts struct {
	mu      sync.RWMutex
	byEmail map[string]Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byEmail: make(map[string]Account)}
}

func (m *MemoryAccounts) Create(_ context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := NormalizeEmail(a.Email)
	if _, ok := m.byEmail[key]; ok {
		return ErrAccountExists
	}
	m.byEmail[key] = a
	return nil
}

func (m *MemoryAccounts) FindByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *MemoryAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, a := range m.byEmail {
		if a.ID == id {
			delete(m.byEmail, email)
		}
	}
	return nil
}
