package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxShares bounds a single order and any net position
const MaxShares int64 = 1_000_000_000_000_000

// TradeOrder is a validated buy or sell request
type TradeOrder struct {
	Symbol string
	Shares int64
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseTradeOrder converts raw request fields into a TradeOrder.
// Shares must be a plain base-10 positive integer.
func ParseTradeOrder(symbol, shares string) (TradeOrder, error) {
	order := TradeOrder{Symbol: NormalizeSymbol(symbol)}
	if order.Symbol == "" {
		return TradeOrder{}, fmt.Errorf("%w: must provide stock symbol", ErrInputValidation)
	}

	shares = strings.TrimSpace(shares)
	if shares == "" {
		return TradeOrder{}, fmt.Errorf("%w: must provide number of shares", ErrInputValidation)
	}
	for _, r := range shares {
		if r < '0' || r > '9' {
			return TradeOrder{}, fmt.Errorf("%w: shares %q must be a whole number", ErrInputValidation, shares)
		}
	}
	n, err := strconv.ParseInt(shares, 10, 64)
	if err != nil {
		return TradeOrder{}, fmt.Errorf("%w: shares %q out of range", ErrInputValidation, shares)
	}
	order.Shares = n

	if err := order.Validate(); err != nil {
		return TradeOrder{}, err
	}
	return order, nil
}

// Validate checks an order built without ParseTradeOrder
func (o TradeOrder) Validate() error {
	if NormalizeSymbol(o.Symbol) == "" {
		return fmt.Errorf("%w: must provide stock symbol", ErrInputValidation)
	}
	if o.Shares < 1 {
		return fmt.Errorf("%w: shares must be a positive number", ErrInputValidation)
	}
	if o.Shares > MaxShares {
		return fmt.Errorf("%w: shares must not exceed %d", ErrInputValidation, MaxShares)
	}
	return nil
}

// ParseDeposit converts a raw amount into a non-negative Money
func ParseDeposit(amount string) (Money, error) {
	m, err := ParseMoney(amount)
	if err != nil {
		return ZeroMoney, err
	}
	if err := ValidateDeposit(m); err != nil {
		return ZeroMoney, err
	}
	return m, nil
}

// ValidateDeposit rejects negative deposit amounts and amounts beyond MaxMoney
func ValidateDeposit(amount Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: deposit amount %s must not be negative", ErrInputValidation, amount)
	}
	return CheckAmount(amount)
}
