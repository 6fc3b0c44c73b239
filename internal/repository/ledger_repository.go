package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"papertrade/internal/domain"
)

// LedgerRepositoryImpl implements the LedgerStore interface on PostgreSQL.
// UpdateAccount locks the account row with SELECT ... FOR UPDATE for the life of the transaction.
type LedgerRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerStore
func NewLedgerRepository(db *pgxpool.Pool) domain.LedgerStore {
	return &LedgerRepositoryImpl{db: db}
}

// Ping checks the pool can reach the database
func (r *LedgerRepositoryImpl) Ping(ctx context.Context) error {
	return domain.NewStoreError("ping", r.db.Ping(ctx))
}

// ReadBalance returns the committed cash balance
func (r *LedgerRepositoryImpl) ReadBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error) {
	return readBalance(ctx, r.db, userID, false)
}

// ReadTransactions returns the committed log in insertion order
func (r *LedgerRepositoryImpl) ReadTransactions(ctx context.Context, userID uuid.UUID) ([]*domain.TransactionRecord, error) {
	snap, err := r.ReadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snap.Transactions, nil
}

// ReadAccount reads balance and log from one repeatable-read snapshot
func (r *LedgerRepositoryImpl) ReadAccount(ctx context.Context, userID uuid.UUID) (*domain.AccountSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, domain.NewStoreError("begin", err)
	}
	defer tx.Rollback(ctx)

	cash, err := readBalance(ctx, tx, userID, false)
	if err != nil {
		return nil, err
	}
	records, err := readTransactions(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewStoreError("commit", err)
	}

	return &domain.AccountSnapshot{UserID: userID, Cash: cash, Transactions: records}, nil
}

// UpdateAccount runs fn inside a transaction holding the account row lock.
// The transaction commits only when fn returns nil.
func (r *LedgerRepositoryImpl) UpdateAccount(ctx context.Context, userID uuid.UUID, fn func(tx domain.AccountTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.NewStoreError("begin", err)
	}
	defer tx.Rollback(ctx)

	cash, err := readBalance(ctx, tx, userID, true)
	if err != nil {
		return err
	}

	if err := fn(&ledgerTx{tx: tx, userID: userID, balance: cash}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreError("commit", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func readBalance(ctx context.Context, q querier, userID uuid.UUID, forUpdate bool) (domain.Money, error) {
	query := `SELECT cash::text FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var cash string
	err := q.QueryRow(ctx, query, userID).Scan(&cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ZeroMoney, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, userID)
	}
	if err != nil {
		return domain.ZeroMoney, domain.NewStoreError("read balance", err)
	}
	return parseNumeric(cash)
}

func readTransactions(ctx context.Context, q querier, userID uuid.UUID) ([]*domain.TransactionRecord, error) {
	query := `
		SELECT id, symbol, type, shares, price::text, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY seq ASC
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.NewStoreError("query transactions", err)
	}
	defer rows.Close()

	records := []*domain.TransactionRecord{}
	for rows.Next() {
		rec := &domain.TransactionRecord{UserID: userID}
		var kind, price string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &kind, &rec.Shares, &price, &rec.CreatedAt); err != nil {
			return nil, domain.NewStoreError("scan transaction", err)
		}
		rec.Kind = domain.TransactionKind(kind)
		if rec.Price, err = parseNumeric(price); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate transactions", err)
	}
	return records, nil
}

// ledgerTx is the AccountTx view of an open transaction
type ledgerTx struct {
	tx      pgx.Tx
	userID  uuid.UUID
	balance domain.Money
}

func (t *ledgerTx) ReadBalance(ctx context.Context) (domain.Money, error) {
	return t.balance, nil
}

func (t *ledgerTx) ReadTransactions(ctx context.Context) ([]*domain.TransactionRecord, error) {
	return readTransactions(ctx, t.tx, t.userID)
}

func (t *ledgerTx) UpdateBalance(ctx context.Context, balance domain.Money) error {
	if err := domain.CheckAmount(balance); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE users SET cash = $1::numeric, updated_at = NOW() WHERE id = $2`,
		balance.String(), t.userID)
	if err != nil {
		return domain.NewStoreError("update balance", err)
	}
	t.balance = balance
	return nil
}

func (t *ledgerTx) AppendTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, user_id, symbol, type, shares, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
	`
	_, err := t.tx.Exec(ctx, query,
		record.ID,
		t.userID,
		record.Symbol,
		string(record.Kind),
		record.Shares,
		record.Price.String(),
		record.CreatedAt,
	)
	if err != nil {
		return domain.NewStoreError("append transaction", err)
	}
	return nil
}
