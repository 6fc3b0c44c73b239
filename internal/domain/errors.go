package domain

import (
	"errors"
	"fmt"
)

// Ledger failure categories. Every engine failure wraps exactly one of these.
var (
	ErrInputValidation    = errors.New("invalid input")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrStore              = errors.New("store error")
	ErrDataIntegrity      = errors.New("data integrity violation")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already exists")
)

// Error kind codes exposed to callers
const (
	KindInputValidation    = "input_validation"
	KindUnknownSymbol      = "unknown_symbol"
	KindInsufficientFunds  = "insufficient_funds"
	KindInsufficientShares = "insufficient_shares"
	KindStoreError         = "store_error"
	KindDataIntegrity      = "data_integrity"
	KindNotFound           = "not_found"
	KindConflict           = "conflict"
	KindInternal           = "internal"
)

// StoreError reports a failure of the durability layer
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err, returning nil when err is nil
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) hold for every StoreError
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// ErrorKind classifies err into one of the Kind* codes
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputValidation):
		return KindInputValidation
	case errors.Is(err, ErrUnknownSymbol):
		return KindUnknownSymbol
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInsufficientShares):
		return KindInsufficientShares
	case errors.Is(err, ErrDataIntegrity):
		return KindDataIntegrity
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrUsernameTaken):
		return KindConflict
	case errors.Is(err, ErrStore):
		return KindStoreError
	default:
		return KindInternal
	}
}

// IsRetryable reports whether the caller may retry the failed operation
func IsRetryable(err error) bool {
	return ErrorKind(err) == KindStoreError
}
