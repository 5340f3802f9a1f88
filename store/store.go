package store

import (
	"context"
	"errors"
	"time"

	"github.com/ecbarko/ecbarko-db/models"
)

// ErrAccountNotFound is returned by reads for an unknown userId.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore persists accounts keyed by userId.
//
// Credit is a single atomic step: it increments the balance, appends one
// load record and creates the account when it does not exist yet. Concurrent
// credits to the same userId never lose an update.
type AccountStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Account, error)
	Credit(ctx context.Context, userID string, amount float64, at time.Time) (*models.Account, error)
	Close(ctx context.Context) error
}
