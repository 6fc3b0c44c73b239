package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionKind is the direction of a ledger record
type TransactionKind string

// TransactionKind constants
const (
	KindBuy  TransactionKind = "buy"
	KindSell TransactionKind = "sell"
)

// Valid reports whether k is a known kind
func (k TransactionKind) Valid() bool {
	return k == KindBuy || k == KindSell
}

// TransactionRecord is one immutable entry of a user's share ledger
type TransactionRecord struct {
	ID        string          `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Kind      TransactionKind `json:"type"`
	Shares    int64           `json:"shares"`
	Price     Money           `json:"price"`
	CreatedAt time.Time       `json:"timestamp"`
}

// Amount is price times shares: the cost of a buy or the proceeds of a sell
func (r *TransactionRecord) Amount() Money {
	return r.Price.MulInt(r.Shares)
}

// SignedShares is +shares for a buy and -shares for a sell
func (r *TransactionRecord) SignedShares() int64 {
	if r.Kind == KindSell {
		return -r.Shares
	}
	return r.Shares
}

// Validate checks the record invariants a correct writer always upholds
func (r *TransactionRecord) Validate() error {
	if r.Shares <= 0 || r.Shares > MaxShares {
		return fmt.Errorf("%w: record %s has share count %d outside 1..%d", ErrDataIntegrity, r.ID, r.Shares, MaxShares)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: record %s has unknown kind %q", ErrDataIntegrity, r.ID, r.Kind)
	}
	if !r.Price.IsPositive() || !r.Price.InRange() {
		return fmt.Errorf("%w: record %s has price %s outside (0, %s]", ErrDataIntegrity, r.ID, r.Price, MaxMoney)
	}
	if r.Symbol == "" {
		return fmt.Errorf("%w: record %s has no symbol", ErrDataIntegrity, r.ID)
	}
	return nil
}

// TradeReceipt is the result of a successful buy or sell
type TradeReceipt struct {
	Record  *TransactionRecord `json:"transaction"`
	Name    string             `json:"name"`
	Total   Money              `json:"total"`
	Balance Money              `json:"balance"`
}
