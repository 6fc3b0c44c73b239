package dto

import (
	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

// TradeRequest is the body of a buy or sell
type TradeRequest struct {
	Symbol string       `json:"symbol" form:"symbol" query:"symbol"`
	Shares NumericField `json:"shares" form:"shares" query:"shares"`
}

// Order parses the request into a validated order
func (r TradeRequest) Order() (domain.TradeOrder, error) {
	return domain.ParseTradeOrder(r.Symbol, r.Shares.Raw)
}

// DepositRequest is the body of a cash deposit
type DepositRequest struct {
	Amount NumericField `json:"amount" form:"amount" query:"amount"`
}

// ParsedAmount parses the request into a non-negative amount
func (r DepositRequest) ParsedAmount() (domain.Money, error) {
	return domain.ParseDeposit(r.Amount.Raw)
}

// QuoteOutput is a quote in API responses
type QuoteOutput struct {
	Symbol       string       `json:"symbol"`
	Name         string       `json:"name"`
	Price        domain.Money `json:"price"`
	PriceDisplay string       `json:"price_display"`
}

// NewQuoteOutput converts a domain quote
func NewQuoteOutput(q *domain.Quote) *QuoteOutput {
	return &QuoteOutput{
		Symbol:       q.Symbol,
		Name:         q.Name,
		Price:        q.Price,
		PriceDisplay: q.Price.Format(),
	}
}

// TransactionOutput is one ledger record in API responses
type TransactionOutput struct {
	ID        string       `json:"id"`
	Symbol    string       `json:"symbol"`
	Type      string       `json:"type"`
	Shares    int64        `json:"shares"`
	Price     domain.Money `json:"price"`
	Amount    domain.Money `json:"amount"`
	Timestamp string       `json:"timestamp"`
}

// NewTransactionOutput converts a domain record
func NewTransactionOutput(rec *domain.TransactionRecord) TransactionOutput {
	return TransactionOutput{
		ID:        rec.ID,
		Symbol:    rec.Symbol,
		Type:      string(rec.Kind),
		Shares:    rec.Shares,
		Price:     rec.Price,
		Amount:    rec.Amount(),
		Timestamp: utils.FormatTimestamp(rec.CreatedAt),
	}
}

// NewHistoryOutput converts a log
func NewHistoryOutput(records []*domain.TransactionRecord) []TransactionOutput {
	out := make([]TransactionOutput, 0, len(records))
	for _, rec := range records {
		out = append(out, NewTransactionOutput(rec))
	}
	return out
}

// TradeOutput is the result of a buy or sell
type TradeOutput struct {
	Transaction    TransactionOutput `json:"transaction"`
	Name           string            `json:"name"`
	Total          domain.Money      `json:"total"`
	Balance        domain.Money      `json:"balance"`
	BalanceDisplay string            `json:"balance_display"`
}

// NewTradeOutput converts a receipt
func NewTradeOutput(r *domain.TradeReceipt) *TradeOutput {
	return &TradeOutput{
		Transaction:    NewTransactionOutput(r.Record),
		Name:           r.Name,
		Total:          r.Total,
		Balance:        r.Balance,
		BalanceDisplay: r.Balance.Format(),
	}
}

// BalanceOutput is the result of a deposit
type BalanceOutput struct {
	Balance        domain.Money `json:"balance"`
	BalanceDisplay string       `json:"balance_display"`
}

// HoldingOutput is one valued position
type HoldingOutput struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name"`
	Shares int64        `json:"shares"`
	Price  domain.Money `json:"price"`
	Total  domain.Money `json:"total"`
}

// PortfolioOutput is the valuation view of an account
type PortfolioOutput struct {
	Cash          domain.Money           `json:"cash"`
	Holdings      []HoldingOutput        `json:"holdings"`
	Unpriced      []domain.LookupFailure `json:"unpriced,omitempty"`
	HoldingsValue domain.Money           `json:"holdings_value"`
	Total         domain.Money           `json:"total"`
	TotalDisplay  string                 `json:"total_display"`
	Partial       bool                   `json:"partial"`
	AsOf          string                 `json:"as_of"`
}

// NewPortfolioOutput converts a valuation
func NewPortfolioOutput(v *domain.ValuationSnapshot) *PortfolioOutput {
	out := &PortfolioOutput{
		Cash:          v.Cash,
		Holdings:      make([]HoldingOutput, 0, len(v.Holdings)),
		Unpriced:      v.Failures,
		HoldingsValue: v.HoldingsValue,
		Total:         v.Total,
		TotalDisplay:  v.Total.Format(),
		Partial:       v.Partial(),
		AsOf:          utils.FormatTimestamp(v.AsOf),
	}
	for _, h := range v.Holdings {
		out.Holdings = append(out.Holdings, HoldingOutput{
			Symbol: h.Symbol,
			Name:   h.Name,
			Shares: h.Shares,
			Price:  h.Price,
			Total:  h.Value,
		})
	}
	return out
}
