package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ecbarko/ecbarko-db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FindMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.FindByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemoryStore_CreditCreatesAccountWithRecord(t *testing.T) {
	s := NewMemoryStore()
	at := time.Now()

	account, err := s.Credit(context.Background(), "u1", 50, at)
	require.NoError(t, err)

	assert.Equal(t, "u1", account.UserID)
	assert.Equal(t, 50.0, account.Balance)
	require.Len(t, account.Transactions, 1)
	assert.Equal(t, 50.0, account.Transactions[0].Amount)
	assert.Equal(t, models.TransactionTypeLoad, account.Transactions[0].Type)
}

func TestMemoryStore_SequentialCredits(t *testing.T) {
	s := NewMemoryStore()
	s.Put(models.Account{UserID: "u1", Balance: 100})
	ctx := context.Background()

	_, err := s.Credit(ctx, "u1", 30, time.Now())
	require.NoError(t, err)
	_, err = s.Credit(ctx, "u1", 20, time.Now())
	require.NoError(t, err)

	account, err := s.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 150.0, account.Balance)
	require.Len(t, account.Transactions, 2)
	assert.Equal(t, 30.0, account.Transactions[0].Amount)
	assert.Equal(t, 20.0, account.Transactions[1].Amount)
}

func TestMemoryStore_ConcurrentCreditsConverge(t *testing.T) {
	s := NewMemoryStore()
	s.Put(models.Account{UserID: "u1", Balance: 10})
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Credit(ctx, "u1", 1, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	account, err := s.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10.0+n, account.Balance)
	assert.Len(t, account.Transactions, n)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account, err := s.Credit(ctx, "u1", 5, time.Now())
	require.NoError(t, err)
	account.Balance = 9999
	account.Transactions[0].Amount = 9999

	stored, err := s.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored.Balance)
	assert.Equal(t, 5.0, stored.Transactions[0].Amount)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Credit(ctx, "u1", 5, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
