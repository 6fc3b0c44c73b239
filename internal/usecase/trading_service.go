package usecase

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

const (
	// DefaultQuoteTimeout bounds a single quote lookup
	DefaultQuoteTimeout = 10 * time.Second

	// maxConcurrentQuotes bounds the lookups a single valuation runs in parallel
	maxConcurrentQuotes = 8
)

// TradingService is the ledger engine: it values accounts and applies buys,
// sells and deposits against a LedgerStore.
type TradingService struct {
	store        domain.LedgerStore
	quotes       domain.QuoteService
	publisher    domain.EventPublisher
	quoteTimeout time.Duration

	muMap map[uuid.UUID]*accountLock // one entry per account with a holder or waiter
	mapMu sync.Mutex                 // protects muMap itself

	now   func() time.Time
	newID func(time.Time) string
}

// NewTradingService creates a new TradingService.
// publisher may be nil; quoteTimeout <= 0 selects DefaultQuoteTimeout.
func NewTradingService(
	store domain.LedgerStore,
	quotes domain.QuoteService,
	publisher domain.EventPublisher,
	quoteTimeout time.Duration,
) *TradingService {
	if quoteTimeout <= 0 {
		quoteTimeout = DefaultQuoteTimeout
	}
	return &TradingService{
		store:        store,
		quotes:       quotes,
		publisher:    publisher,
		quoteTimeout: quoteTimeout,
		muMap:        make(map[uuid.UUID]*accountLock),
		now:          utils.Now,
		newID:        utils.NewTransactionID,
	}
}

// accountLock is a per-account mutex counted by the callers holding or waiting on it
type accountLock struct {
	mu   sync.Mutex
	refs int
}

// lockAccount blocks until the caller holds userID's lock and returns the matching unlock.
// The entry is dropped once no caller references it.
func (ts *TradingService) lockAccount(userID uuid.UUID) (unlock func()) {
	ts.mapMu.Lock()
	l, exists := ts.muMap[userID]
	if !exists {
		l = &accountLock{}
		ts.muMap[userID] = l
	}
	l.refs++
	ts.mapMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		ts.mapMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(ts.muMap, userID)
		}
		ts.mapMu.Unlock()
	}
}

// lockedAccounts reports how many accounts currently have a lock entry
func (ts *TradingService) lockedAccounts() int {
	ts.mapMu.Lock()
	defer ts.mapMu.Unlock()
	return len(ts.muMap)
}

// Quote resolves a symbol to its current quote
func (ts *TradingService) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: must provide stock symbol", domain.ErrInputValidation)
	}
	return ts.lookup(ctx, symbol)
}

// lookup runs one bounded quote call. Every failure, including a timeout, is an unknown symbol.
func (ts *TradingService) lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, ts.quoteTimeout)
	defer cancel()

	quote, err := ts.quotes.LookupQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnknownSymbol, symbol, err)
	}
	if quote == nil || !quote.Price.IsPositive() {
		return nil, fmt.Errorf("%w: %s: no usable price", domain.ErrUnknownSymbol, symbol)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	quote.Symbol = domain.NormalizeSymbol(quote.Symbol)
	return quote, nil
}

// Positions returns the net share count of every symbol in the user's log
func (ts *TradingService) Positions(ctx context.Context, userID uuid.UUID) (domain.Positions, error) {
	records, err := ts.store.ReadTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.AggregatePositions(records)
}

// History returns the user's transaction log, newest first
func (ts *TradingService) History(ctx context.Context, userID uuid.UUID) ([]*domain.TransactionRecord, error) {
	records, err := ts.store.ReadTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	slices.Reverse(records)
	return records, nil
}

// Portfolio values the account at current market prices.
// A held symbol whose quote cannot be resolved is reported in Failures and left out of the total.
func (ts *TradingService) Portfolio(ctx context.Context, userID uuid.UUID) (*domain.ValuationSnapshot, error) {
	snap, err := ts.store.ReadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions, err := domain.AggregatePositions(snap.Transactions)
	if err != nil {
		return nil, err
	}

	open := positions.Open()
	quotes := make([]*domain.Quote, len(open))
	failures := make([]error, len(open))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)
	for i, symbol := range open {
		g.Go(func() error {
			quotes[i], failures[i] = ts.lookup(gctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	valuation := &domain.ValuationSnapshot{
		UserID:        userID,
		Cash:          snap.Cash,
		Positions:     positions,
		Holdings:      make([]domain.Holding, 0, len(open)),
		HoldingsValue: domain.ZeroMoney,
		AsOf:          ts.now(),
	}

	for i, symbol := range open {
		shares := positions[symbol]
		if failures[i] != nil {
			log.Printf("[WARN] Portfolio %s: price lookup failed for %s: %v", userID, symbol, failures[i])
			valuation.Failures = append(valuation.Failures, domain.LookupFailure{
				Symbol: symbol,
				Shares: shares,
				Reason: failures[i].Error(),
			})
			continue
		}

		value := quotes[i].Price.MulInt(shares)
		valuation.Holdings = append(valuation.Holdings, domain.Holding{
			Symbol: symbol,
			Name:   quotes[i].Name,
			Shares: shares,
			Price:  quotes[i].Price,
			Value:  value,
		})
		valuation.HoldingsValue = valuation.HoldingsValue.Add(value)
	}

	valuation.Total = valuation.Cash.Add(valuation.HoldingsValue)
	return valuation, nil
}

// Buy debits price x shares from the cash balance and appends a buy record as one atomic unit
func (ts *TradingService) Buy(ctx context.Context, userID uuid.UUID, order domain.TradeOrder) (*domain.TradeReceipt, error) {
	return ts.trade(ctx, userID, domain.KindBuy, order)
}

// Sell credits price x shares to the cash balance and appends a sell record as one atomic unit.
// Held shares are computed from the log as it stands when the account lock is taken.
func (ts *TradingService) Sell(ctx context.Context, userID uuid.UUID, order domain.TradeOrder) (*domain.TradeReceipt, error) {
	return ts.trade(ctx, userID, domain.KindSell, order)
}

func (ts *TradingService) trade(ctx context.Context, userID uuid.UUID, kind domain.TransactionKind, order domain.TradeOrder) (*domain.TradeReceipt, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	// The price is fetched outside the account lock and not re-checked before commit
	quote, err := ts.lookup(ctx, domain.NormalizeSymbol(order.Symbol))
	if err != nil {
		return nil, err
	}

	total := quote.Price.MulInt(order.Shares)
	if !total.InRange() {
		return nil, fmt.Errorf("%w: %d %s at %s is worth more than %s",
			domain.ErrInputValidation, order.Shares, quote.Symbol, quote.Price, domain.MaxMoney)
	}

	var (
		record  *domain.TransactionRecord
		balance domain.Money
	)

	unlock := ts.lockAccount(userID)
	err = ts.store.UpdateAccount(ctx, userID, func(tx domain.AccountTx) error {
		cash, err := tx.ReadBalance(ctx)
		if err != nil {
			return err
		}
		records, err := tx.ReadTransactions(ctx)
		if err != nil {
			return err
		}
		positions, err := domain.AggregatePositions(records)
		if err != nil {
			return err
		}
		held := positions.Held(quote.Symbol)

		switch kind {
		case domain.KindBuy:
			if total.GreaterThan(cash) {
				return fmt.Errorf("%w: %d %s at %s costs %s, balance is %s",
					domain.ErrInsufficientFunds, order.Shares, quote.Symbol, quote.Price, total, cash)
			}
			if held+order.Shares > domain.MaxShares {
				return fmt.Errorf("%w: holding %d %s, a position may not exceed %d shares",
					domain.ErrInputValidation, held, quote.Symbol, domain.MaxShares)
			}
			balance = cash.Sub(total)

		case domain.KindSell:
			if order.Shares > held {
				return fmt.Errorf("%w: selling %d %s, holding %d",
					domain.ErrInsufficientShares, order.Shares, quote.Symbol, held)
			}
			balance = cash.Add(total)
			if !balance.InRange() {
				return fmt.Errorf("%w: proceeds %s would raise the balance above %s",
					domain.ErrInputValidation, total, domain.MaxMoney)
			}
		}

		// Stamped under the lock so the log's time order is its commit order
		now := ts.now()
		if n := len(records); n > 0 && now.Before(records[n-1].CreatedAt) {
			now = records[n-1].CreatedAt
		}
		record = &domain.TransactionRecord{
			ID:        ts.newID(now),
			UserID:    userID,
			Symbol:    quote.Symbol,
			Kind:      kind,
			Shares:    order.Shares,
			Price:     quote.Price,
			CreatedAt: now,
		}

		if err := tx.AppendTransaction(ctx, record); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, balance)
	})
	unlock()

	if err != nil {
		return nil, err
	}

	receipt := &domain.TradeReceipt{
		Record:  record,
		Name:    quote.Name,
		Total:   total,
		Balance: balance,
	}

	log.Printf("[OK] %s %s: %d %s @ %s = %s | cash=%s",
		kind, userID, order.Shares, quote.Symbol, quote.Price, total, balance)

	ts.publish(ctx, domain.NewTradeEvent(receipt))
	return receipt, nil
}

// Deposit adds a non-negative amount to the cash balance. No transaction record is written.
func (ts *TradingService) Deposit(ctx context.Context, userID uuid.UUID, amount domain.Money) (domain.Money, error) {
	if err := domain.ValidateDeposit(amount); err != nil {
		return domain.ZeroMoney, err
	}

	var balance domain.Money

	unlock := ts.lockAccount(userID)
	err := ts.store.UpdateAccount(ctx, userID, func(tx domain.AccountTx) error {
		cash, err := tx.ReadBalance(ctx)
		if err != nil {
			return err
		}
		balance = cash.Add(amount)
		if !balance.InRange() {
			return fmt.Errorf("%w: depositing %s would raise the balance above %s",
				domain.ErrInputValidation, amount, domain.MaxMoney)
		}
		return tx.UpdateBalance(ctx, balance)
	})
	unlock()

	if err != nil {
		return domain.ZeroMoney, err
	}

	log.Printf("[OK] deposit %s: %s | cash=%s", userID, amount, balance)

	now := ts.now()
	ts.publish(ctx, domain.TradeEvent{
		ID:         ts.newID(now),
		Type:       domain.EventCashDeposit,
		UserID:     userID,
		Amount:     amount,
		Balance:    balance,
		OccurredAt: now,
	})
	return balance, nil
}

// publish hands a committed event to the publisher. Failures never affect the committed operation.
func (ts *TradingService) publish(ctx context.Context, event domain.TradeEvent) {
	if ts.publisher == nil {
		return
	}
	if err := ts.publisher.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish %s event %s: %v", event.Type, event.ID, err)
	}
}
