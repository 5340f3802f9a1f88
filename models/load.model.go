package models

import (
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingUserID  = errors.New("userId is required")
	ErrUserIDTooLong  = errors.New("userId is too long")
	ErrInvalidAmount  = errors.New("amount must be a positive number")
	ErrAmountTooLarge = errors.New("amount exceeds the maximum load")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadRequest is the body of POST /load.
type LoadRequest struct {
	UserID string  `json:"userId" validate:"required,max=128"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

// Validate checks the request before any mutation. maxAmount <= 0 disables
// the upper bound.
func (l *LoadRequest) Validate(maxAmount float64) error {
	l.UserID = strings.TrimSpace(l.UserID)

	if math.IsNaN(l.Amount) || math.IsInf(l.Amount, 0) {
		return ErrInvalidAmount
	}

	if err := validate.Struct(l); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		switch verrs[0].Field() {
		case "UserID":
			if verrs[0].Tag() == "max" {
				return ErrUserIDTooLong
			}
			return ErrMissingUserID
		default:
			return ErrInvalidAmount
		}
	}

	if maxAmount > 0 && l.Amount > maxAmount {
		return ErrAmountTooLarge
	}

	return nil
}

// BalanceResponse is returned by GET /balance/{userId}.
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// HistoryResponse is returned by GET /history/{userId}.
type HistoryResponse struct {
	History []Transaction `json:"history"`
}

// LoadResponse is returned by POST /load.
type LoadResponse struct {
	Success    bool    `json:"success"`
	NewBalance float64 `json:"newBalance"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
