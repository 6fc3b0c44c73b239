package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user with its initial cash balance
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetAll retrieves all users
	GetAll(ctx context.Context) ([]*User, error)
}

// AccountSnapshot is a consistent read of one account's balance and log
type AccountSnapshot struct {
	UserID       uuid.UUID
	Cash         Money
	Transactions []*TransactionRecord
}

// AccountTx is the atomic unit over one account. Writes become visible only
// if the function passed to UpdateAccount returns nil.
type AccountTx interface {
	ReadBalance(ctx context.Context) (Money, error)
	ReadTransactions(ctx context.Context) ([]*TransactionRecord, error)
	UpdateBalance(ctx context.Context, balance Money) error
	AppendTransaction(ctx context.Context, record *TransactionRecord) error
}

// LedgerStore is the durable transaction log plus the cash balance of every account
type LedgerStore interface {
	// ReadBalance returns the current cash balance
	ReadBalance(ctx context.Context, userID uuid.UUID) (Money, error)

	// ReadTransactions returns the user's log in append order
	ReadTransactions(ctx context.Context, userID uuid.UUID) ([]*TransactionRecord, error)

	// ReadAccount returns balance and log from the same committed state
	ReadAccount(ctx context.Context, userID uuid.UUID) (*AccountSnapshot, error)

	// UpdateAccount runs fn as one atomic unit, serialized with every other
	// UpdateAccount on the same user. An error from fn is returned unchanged.
	UpdateAccount(ctx context.Context, userID uuid.UUID, fn func(tx AccountTx) error) error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}
