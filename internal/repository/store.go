package repository

import (
	"context"
	"errors"

	"finboard/internal/models"
)

// ErrNotFound is returned when a transaction does not exist for the given
// user. A record owned by someone else is reported the same way.
var ErrNotFound = errors.New("transaction not found")

// TransactionStore is the persistence boundary. Every call is scoped to a
// single user; implementations must never touch another user's records.
// Business validation happens before these calls.
type TransactionStore interface {
	Create(ctx context.Context, userID string, fields models.TransactionFields) (string, error)
	Get(ctx context.Context, userID, id string) (*models.Transaction, error)
	// List returns all of the user's transactions. Ordering is not part of
	// the contract.
	List(ctx context.Context, userID string) ([]models.Transaction, error)
	Update(ctx context.Context, userID, id string, fields models.TransactionFields) error
	Delete(ctx context.Context, userID, id string) error
}
