package domain

import "context"

// Quote is the current market price and display name of a symbol
type Quote struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  Money  `json:"price"`
}

// QuoteService resolves a symbol to its current quote.
// Implementations return an error wrapping ErrUnknownSymbol when the symbol does not exist.
type QuoteService interface {
	LookupQuote(ctx context.Context, symbol string) (*Quote, error)
}
