package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"papertrade/internal/database"
	"papertrade/internal/domain"
)

// Store is a UserRepository and LedgerStore backed by a SQLite file.
// Every UpdateAccount runs in a BEGIN IMMEDIATE transaction, so writers to the
// same file are serialized by SQLite itself.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(database.SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return domain.NewStoreError("ping", s.db.PingContext(ctx))
}

// Create creates a new user
func (s *Store) Create(ctx context.Context, user *domain.User) error {
	if user.Cash.IsNegative() {
		return fmt.Errorf("%w: initial cash %s is negative", domain.ErrInputValidation, user.Cash)
	}
	cash, err := user.Cash.Cents()
	if err != nil {
		return err
	}
	updated := user.UpdatedAt
	if updated.IsZero() {
		updated = user.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, cash_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Username, user.PasswordHash, user.Role,
		cash, user.CreatedAt.UnixMicro(), updated.UnixMicro(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", domain.ErrUsernameTaken, user.Username)
		}
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: id %s", domain.ErrUsernameTaken, user.ID)
		}
		return domain.NewStoreError("create user", err)
	}
	return nil
}

const userColumns = `id, username, password_hash, role, cash_cents, created_at, updated_at`

// GetByID retrieves a user by ID
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return user, err
}

// GetByUsername retrieves a user by username, ignoring case
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, username)
	}
	return user, err
}

// GetAll retrieves all users ordered by creation time
func (s *Store) GetAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, username ASC`)
	if err != nil {
		return nil, domain.NewStoreError("query users", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate users", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user             domain.User
		id               string
		cents            int64
		created, updated int64
	)
	err := row.Scan(&id, &user.Username, &user.PasswordHash, &user.Role, &cents, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, domain.NewStoreError("scan user", err)
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q: %v", domain.ErrDataIntegrity, id, err)
	}
	user.Cash = domain.MoneyFromCents(cents)
	user.CreatedAt = time.UnixMicro(created).UTC()
	user.UpdatedAt = time.UnixMicro(updated).UTC()
	return &user, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readBalance(ctx context.Context, q queryer, userID uuid.UUID) (domain.Money, error) {
	var cents int64
	err := q.QueryRowContext(ctx, `SELECT cash_cents FROM users WHERE id = ?`, userID.String()).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ZeroMoney, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, userID)
	}
	if err != nil {
		return domain.ZeroMoney, domain.NewStoreError("read balance", err)
	}
	return domain.MoneyFromCents(cents), nil
}

func readTransactions(ctx context.Context, q queryer, userID uuid.UUID) ([]*domain.TransactionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, symbol, type, shares, price_cents, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY seq ASC`, userID.String())
	if err != nil {
		return nil, domain.NewStoreError("query transactions", err)
	}
	defer rows.Close()

	records := []*domain.TransactionRecord{}
	for rows.Next() {
		var (
			rec     domain.TransactionRecord
			kind    string
			cents   int64
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &kind, &rec.Shares, &cents, &created); err != nil {
			return nil, domain.NewStoreError("scan transaction", err)
		}
		rec.UserID = userID
		rec.Kind = domain.TransactionKind(kind)
		rec.Price = domain.MoneyFromCents(cents)
		rec.CreatedAt = time.UnixMicro(created).UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate transactions", err)
	}
	return records, nil
}

// ReadBalance returns the committed cash balance
func (s *Store) ReadBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error) {
	return readBalance(ctx, s.db, userID)
}

// ReadTransactions returns the committed log in insertion order
func (s *Store) ReadTransactions(ctx context.Context, userID uuid.UUID) ([]*domain.TransactionRecord, error) {
	if _, err := readBalance(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return readTransactions(ctx, s.db, userID)
}

// ReadAccount reads balance and log inside one transaction
func (s *Store) ReadAccount(ctx context.Context, userID uuid.UUID) (*domain.AccountSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	cash, err := readBalance(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	records, err := readTransactions(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewStoreError("commit", err)
	}

	return &domain.AccountSnapshot{UserID: userID, Cash: cash, Transactions: records}, nil
}

// UpdateAccount runs fn inside a write transaction and commits only when fn returns nil
func (s *Store) UpdateAccount(ctx context.Context, userID uuid.UUID, fn func(tx domain.AccountTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	cash, err := readBalance(ctx, tx, userID)
	if err != nil {
		return err
	}

	if err := fn(&accountTx{tx: tx, userID: userID, balance: cash}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("commit", err)
	}
	return nil
}

// accountTx is the AccountTx view of an open write transaction
type accountTx struct {
	tx      *sql.Tx
	userID  uuid.UUID
	balance domain.Money
}

func (t *accountTx) ReadBalance(ctx context.Context) (domain.Money, error) {
	return t.balance, nil
}

func (t *accountTx) ReadTransactions(ctx context.Context) ([]*domain.TransactionRecord, error) {
	return readTransactions(ctx, t.tx, t.userID)
}

func (t *accountTx) UpdateBalance(ctx context.Context, balance domain.Money) error {
	if err := domain.CheckAmount(balance); err != nil {
		return err
	}
	cents, err := balance.Cents()
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`UPDATE users SET cash_cents = ?, updated_at = ? WHERE id = ?`,
		cents, time.Now().UTC().UnixMicro(), t.userID.String())
	if err != nil {
		return domain.NewStoreError("update balance", err)
	}
	t.balance = balance
	return nil
}

func (t *accountTx) AppendTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	price, err := record.Price.Cents()
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, symbol, type, shares, price_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, t.userID.String(), strings.ToUpper(record.Symbol), string(record.Kind),
		record.Shares, price, record.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return domain.NewStoreError("append transaction", err)
	}
	return nil
}

var (
	_ domain.UserRepository = (*Store)(nil)
	_ domain.LedgerStore    = (*Store)(nil)
)
