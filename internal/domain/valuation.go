package domain

import (
	"time"

	"github.com/google/uuid"
)

// Holding is the valuation of one open position
type Holding struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Shares int64  `json:"shares"`
	Price  Money  `json:"price"`
	Value  Money  `json:"total"`
}

// LookupFailure records a held symbol whose quote could not be resolved
type LookupFailure struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
	Reason string `json:"reason"`
}

// ValuationSnapshot is a point-in-time valuation of an account. It is never persisted.
type ValuationSnapshot struct {
	UserID        uuid.UUID       `json:"user_id"`
	Cash          Money           `json:"cash"`
	Positions     Positions       `json:"positions"`
	Holdings      []Holding       `json:"holdings"`
	Failures      []LookupFailure `json:"failures,omitempty"`
	HoldingsValue Money           `json:"holdings_value"`
	Total         Money           `json:"total"`
	AsOf          time.Time       `json:"as_of"`
}

// Partial reports whether some held symbols could not be valued
func (v *ValuationSnapshot) Partial() bool {
	return len(v.Failures) > 0
}
