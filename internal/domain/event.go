package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TradeEvent types
const (
	EventTradeBuy    = "trade.buy"
	EventTradeSell   = "trade.sell"
	EventCashDeposit = "cash.deposit"
)

// TradeEvent is emitted after a ledger mutation has been committed
type TradeEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	Symbol     string    `json:"symbol,omitempty"`
	Shares     int64     `json:"shares,omitempty"`
	Price      *Money    `json:"price,omitempty"`
	Amount     Money     `json:"amount"`
	Balance    Money     `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers committed ledger events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event TradeEvent) error
}

// NewTradeEvent builds the event for a committed buy or sell
func NewTradeEvent(receipt *TradeReceipt) TradeEvent {
	rec := receipt.Record
	eventType := EventTradeBuy
	if rec.Kind == KindSell {
		eventType = EventTradeSell
	}
	price := rec.Price
	return TradeEvent{
		ID:         rec.ID,
		Type:       eventType,
		UserID:     rec.UserID,
		Symbol:     rec.Symbol,
		Shares:     rec.Shares,
		Price:      &price,
		Amount:     receipt.Total,
		Balance:    receipt.Balance,
		OccurredAt: rec.CreatedAt,
	}
}
