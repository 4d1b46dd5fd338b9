package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socionet/backend/internal/models"
)

var (
	// ErrUserNotFound means no user matched.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken means the email is already registered.
	ErrEmailTaken = errors.New("email already in use")
)

const userColumns = `id, email, password_hash, name, phone, role, status, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Phone, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// CreateUserParams holds the fields of a new account.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         *string
	Phone        *string
	Role         models.Role
	Status       models.UserStatus
}

// Create inserts a user. A duplicate email returns ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, name, phone, role, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+userColumns,
		p.Email, p.PasswordHash, p.Name, p.Phone, p.Role, p.Status))
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	return u, err
}

// Upsert creates the user or overwrites password, name, role and status of
// the existing account with the same email.
func (r *Repository) Upsert(ctx context.Context, p CreateUserParams) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, name, phone, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING `+userColumns,
		p.Email, p.PasswordHash, p.Name, p.Phone, p.Role, p.Status))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
