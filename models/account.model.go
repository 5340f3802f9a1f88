package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionTypeLoad tags a credit applied through the load endpoint.
const TransactionTypeLoad = "load"

// Account is the balance document for one user.
// userId carries a unique index, see config.ConnectToMongo.
type Account struct {
	ID           primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID       string             `json:"userId" bson:"userId"`
	Balance      float64            `json:"balance" bson:"balance"`
	Transactions []Transaction      `json:"transactions" bson:"transactions"`
}

// Transaction is embedded in Account and has no identity of its own.
type Transaction struct {
	Amount    float64   `json:"amount" bson:"amount"`
	Type      string    `json:"type" bson:"type"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewLoad builds the record appended by a credit.
func NewLoad(amount float64, at time.Time) Transaction {
	return Transaction{
		Amount:    amount,
		Type:      TransactionTypeLoad,
		Timestamp: at.UTC().Truncate(time.Millisecond),
	}
}

// History returns the account transactions, never nil.
func (a *Account) History() []Transaction {
	if a.Transactions == nil {
		return []Transaction{}
	}
	return a.Transactions
}
