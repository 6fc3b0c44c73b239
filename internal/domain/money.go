package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every Money value carries
const MoneyScale = 2

// CurrencyCode is the single currency the ledger is denominated in
const CurrencyCode = money.USD

// Money is an exact fixed-point amount in CurrencyCode, always rounded to cents
type Money struct {
	amount decimal.Decimal
}

// ZeroMoney is the zero amount
var ZeroMoney = Money{amount: decimal.Zero}

// MaxMoney is the largest amount the ledger stores. Its cent count fits an int64
// and its digits fit NUMERIC(20,2).
var MaxMoney = Money{amount: decimal.RequireFromString("9999999999999999.99")}

// NewMoney rounds d half-up to cents
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d.Round(MoneyScale)}
}

// MoneyFromCents builds a Money from an integer number of cents
func MoneyFromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -MoneyScale)}
}

// ParseMoney parses a plain decimal string such as "10", "9500.5" or "0.07".
// Exponents, signs other than a leading '-', and more than two fractional digits are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroMoney, fmt.Errorf("%w: amount is required", ErrInputValidation)
	}
	if strings.ContainsAny(s, "eE+_ ") {
		return ZeroMoney, fmt.Errorf("%w: amount %q is not a plain decimal", ErrInputValidation, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney, fmt.Errorf("%w: amount %q is not a number", ErrInputValidation, s)
	}
	if d.Exponent() < -MoneyScale && !d.Equal(d.Round(MoneyScale)) {
		return ZeroMoney, fmt.Errorf("%w: amount %q has more than %d decimal places", ErrInputValidation, s, MoneyScale)
	}
	m := NewMoney(d)
	if !m.InRange() {
		return ZeroMoney, fmt.Errorf("%w: amount %q exceeds %s", ErrInputValidation, s, MaxMoney)
	}
	return m, nil
}

// MustParseMoney is ParseMoney for constants; it panics on malformed input
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(n Money) Money        { return Money{amount: m.amount.Add(n.amount)} }
func (m Money) Sub(n Money) Money        { return Money{amount: m.amount.Sub(n.amount)} }
func (m Money) MulInt(n int64) Money     { return Money{amount: m.amount.Mul(decimal.NewFromInt(n))} }
func (m Money) Cmp(n Money) int          { return m.amount.Cmp(n.amount) }
func (m Money) Equal(n Money) bool       { return m.amount.Equal(n.amount) }
func (m Money) LessThan(n Money) bool    { return m.amount.LessThan(n.amount) }
func (m Money) GreaterThan(n Money) bool { return m.amount.GreaterThan(n.amount) }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }
func (m Money) IsPositive() bool         { return m.amount.IsPositive() }
func (m Money) Decimal() decimal.Decimal { return m.amount }
func (m Money) String() string           { return m.amount.StringFixed(MoneyScale) }
func (m Money) Neg() Money               { return Money{amount: m.amount.Neg()} }

// InRange reports whether |m| <= MaxMoney
func (m Money) InRange() bool {
	return m.amount.Abs().LessThanOrEqual(MaxMoney.amount)
}

// CheckAmount rejects amounts beyond MaxMoney in either direction
func CheckAmount(m Money) error {
	if !m.InRange() {
		return fmt.Errorf("%w: amount %s exceeds %s", ErrInputValidation, m, MaxMoney)
	}
	return nil
}

// Cents returns the amount as an integer number of cents.
// Amounts whose cent count does not fit an int64 are rejected rather than wrapped.
func (m Money) Cents() (int64, error) {
	cents := m.amount.Shift(MoneyScale).BigInt()
	if !cents.IsInt64() {
		return 0, fmt.Errorf("%w: amount %s is out of range", ErrInputValidation, m)
	}
	return cents.Int64(), nil
}

// Format renders the amount for display, e.g. "$9,500.00"
func (m Money) Format() string {
	cents, err := m.Cents()
	if err != nil {
		return "$" + m.String()
	}
	return money.New(cents, CurrencyCode).Display()
}

// MarshalJSON encodes the amount as a fixed-point decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
