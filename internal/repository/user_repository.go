package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"papertrade/internal/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if user.Cash.IsNegative() {
		return fmt.Errorf("%w: initial cash %s is negative", domain.ErrInputValidation, user.Cash)
	}
	if err := domain.CheckAmount(user.Cash); err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, username, password_hash, role, cash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $6)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Cash.String(),
		user.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrUsernameTaken, user.Username)
		}
		return domain.NewStoreError("create user", err)
	}

	return nil
}

const userColumns = `id, username, password_hash, role, cash::text, created_at, updated_at`

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return user, err
}

// GetByUsername retrieves a user by username, ignoring case
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`

	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, username)
	}
	return user, err
}

// GetAll retrieves all users
func (r *UserRepositoryImpl) GetAll(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, username ASC`

	rows, err := r.db.Query(ctx, query)
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

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var cash string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&cash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, domain.NewStoreError("scan user", err)
	}

	user.Cash, err = parseNumeric(cash)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// parseNumeric converts a NUMERIC(20,2) rendered as text back into Money
func parseNumeric(s string) (domain.Money, error) {
	m, err := domain.ParseMoney(s)
	if err != nil {
		return domain.ZeroMoney, fmt.Errorf("%w: stored amount %q: %v", domain.ErrDataIntegrity, s, err)
	}
	return m, nil
}
