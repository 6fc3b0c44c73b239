package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"papertrade/internal/domain"
)

// account holds one user's AccountState and share ledger.
// mu serializes UpdateAccount and gives readers a committed view.
type account struct {
	mu      sync.RWMutex
	user    domain.User
	records []*domain.TransactionRecord
}

// Store is an in-memory UserRepository and LedgerStore.
// It is safe for concurrent use; different accounts never contend.
type Store struct {
	mu         sync.RWMutex // protects the maps themselves
	accounts   map[uuid.UUID]*account
	byUsername map[string]uuid.UUID
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		accounts:   make(map[uuid.UUID]*account),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (s *Store) lookup(userID uuid.UUID) (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, userID)
	}
	return acc, nil
}

// Create creates a new user
func (s *Store) Create(ctx context.Context, user *domain.User) error {
	if user.Cash.IsNegative() {
		return fmt.Errorf("%w: initial cash %s is negative", domain.ErrInputValidation, user.Cash)
	}
	if err := domain.CheckAmount(user.Cash); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, taken := s.byUsername[key]; taken {
		return fmt.Errorf("%w: %s", domain.ErrUsernameTaken, user.Username)
	}
	if _, exists := s.accounts[user.ID]; exists {
		return fmt.Errorf("%w: id %s", domain.ErrUsernameTaken, user.ID)
	}

	s.accounts[user.ID] = &account{user: *user}
	s.byUsername[key] = user.ID
	return nil
}

// GetByID retrieves a user by ID
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	acc, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	acc.mu.RLock()
	defer acc.mu.RUnlock()

	user := acc.user
	return &user, nil
}

// GetByUsername retrieves a user by username
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	id, ok := s.byUsername[strings.ToLower(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, username)
	}
	return s.GetByID(ctx, id)
}

// GetAll retrieves all users ordered by creation time
func (s *Store) GetAll(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	accounts := make([]*account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	s.mu.RUnlock()

	users := make([]*domain.User, 0, len(accounts))
	for _, acc := range accounts {
		acc.mu.RLock()
		user := acc.user
		acc.mu.RUnlock()
		users = append(users, &user)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// ReadBalance returns the committed cash balance
func (s *Store) ReadBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error) {
	acc, err := s.lookup(userID)
	if err != nil {
		return domain.ZeroMoney, err
	}

	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return acc.user.Cash, nil
}

// ReadTransactions returns a copy of the committed log
func (s *Store) ReadTransactions(ctx context.Context, userID uuid.UUID) ([]*domain.TransactionRecord, error) {
	acc, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}

	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return copyRecords(acc.records), nil
}

// ReadAccount returns balance and log under the same read lock
func (s *Store) ReadAccount(ctx context.Context, userID uuid.UUID) (*domain.AccountSnapshot, error) {
	acc, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}

	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return &domain.AccountSnapshot{
		UserID:       userID,
		Cash:         acc.user.Cash,
		Transactions: copyRecords(acc.records),
	}, nil
}

// UpdateAccount runs fn while holding the account's write lock.
// Writes are staged and applied only when fn returns nil.
func (s *Store) UpdateAccount(ctx context.Context, userID uuid.UUID, fn func(tx domain.AccountTx) error) error {
	acc, err := s.lookup(userID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("begin", err)
	}

	tx := &accountTx{acc: acc, balance: acc.user.Cash}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.balance.IsNegative() {
		return domain.NewStoreError("commit", fmt.Errorf("balance %s violates cash >= 0", tx.balance))
	}

	acc.user.Cash = tx.balance
	acc.records = append(acc.records, tx.appended...)
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// accountTx stages writes against a locked account
type accountTx struct {
	acc      *account
	balance  domain.Money
	appended []*domain.TransactionRecord
}

func (tx *accountTx) ReadBalance(ctx context.Context) (domain.Money, error) {
	return tx.balance, nil
}

func (tx *accountTx) ReadTransactions(ctx context.Context) ([]*domain.TransactionRecord, error) {
	records := copyRecords(tx.acc.records)
	return append(records, copyRecords(tx.appended)...), nil
}

func (tx *accountTx) UpdateBalance(ctx context.Context, balance domain.Money) error {
	if err := domain.CheckAmount(balance); err != nil {
		return err
	}
	tx.balance = balance
	return nil
}

func (tx *accountTx) AppendTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	rec := *record
	tx.appended = append(tx.appended, &rec)
	return nil
}

func copyRecords(records []*domain.TransactionRecord) []*domain.TransactionRecord {
	copied := make([]*domain.TransactionRecord, len(records))
	for i, rec := range records {
		r := *rec
		copied[i] = &r
	}
	return copied
}

// Compile-time check: ensure Store implements both interfaces
var (
	_ domain.UserRepository = (*Store)(nil)
	_ domain.LedgerStore    = (*Store)(nil)
)
