package store

import (
	"context"
	"sync"
	"time"

	"github.com/ecbarko/ecbarko-db/models"
)

// MemoryStore is an in-process AccountStore for local runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*models.Account)}
}

func (s *MemoryStore) FindByUserID(ctx context.Context, userID string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return clone(account), nil
}

func (s *MemoryStore) Credit(ctx context.Context, userID string, amount float64, at time.Time) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		account = &models.Account{UserID: userID}
		s.accounts[userID] = account
	}
	account.Balance += amount
	account.Transactions = append(account.Transactions, models.NewLoad(amount, at))

	return clone(account), nil
}

// Put stores an account as-is, replacing any existing one.
func (s *MemoryStore) Put(account models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.UserID] = clone(&account)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func clone(a *models.Account) *models.Account {
	cp := *a
	cp.Transactions = append([]models.Transaction(nil), a.Transactions...)
	return &cp
}
