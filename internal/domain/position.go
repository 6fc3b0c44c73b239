package domain

import (
	"fmt"
	"sort"
)

// Positions maps a symbol to its net share count.
// Every symbol that appears in the log is present, including those netted to zero.
type Positions map[string]int64

// AggregatePositions sums +shares for buys and -shares for sells per symbol.
// A malformed record, or a running position beyond MaxShares, is rejected as ErrDataIntegrity.
func AggregatePositions(records []*TransactionRecord) (Positions, error) {
	positions := make(Positions)
	for _, rec := range records {
		if err := positions.apply(rec); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

// apply adds one validated record. Each operand is at most MaxShares, so the sum cannot overflow.
func (p Positions) apply(rec *TransactionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	next := p[rec.Symbol] + rec.SignedShares()
	if next > MaxShares || next < -MaxShares {
		return fmt.Errorf("%w: %s position %d at record %s exceeds %d shares",
			ErrDataIntegrity, rec.Symbol, next, rec.ID, MaxShares)
	}
	p[rec.Symbol] = next
	return nil
}

// Held returns the net shares for symbol, zero if it was never traded
func (p Positions) Held(symbol string) int64 {
	return p[symbol]
}

// Symbols returns all symbols in sorted order
func (p Positions) Symbols() []string {
	symbols := make([]string, 0, len(p))
	for symbol := range p {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Open returns the sorted symbols with a nonzero net share count
func (p Positions) Open() []string {
	symbols := make([]string, 0, len(p))
	for _, symbol := range p.Symbols() {
		if p[symbol] != 0 {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// ReplayViolation describes a point in a log where a position went negative
type ReplayViolation struct {
	RecordID string `json:"record_id"`
	Symbol   string `json:"symbol"`
	Position int64  `json:"position"`
}

func (v ReplayViolation) String() string {
	return fmt.Sprintf("%s went to %d shares at record %s", v.Symbol, v.Position, v.RecordID)
}

// ReplayPositions applies records in log order and reports every record after which
// a symbol's running position is negative. The final aggregate is returned as well.
func ReplayPositions(records []*TransactionRecord) (Positions, []ReplayViolation, error) {
	positions := make(Positions)
	var violations []ReplayViolation
	for _, rec := range records {
		if err := positions.apply(rec); err != nil {
			return nil, nil, err
		}
		if positions[rec.Symbol] < 0 {
			violations = append(violations, ReplayViolation{
				RecordID: rec.ID,
				Symbol:   rec.Symbol,
				Position: positions[rec.Symbol],
			})
		}
	}
	return positions, violations, nil
}
