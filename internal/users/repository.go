package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socionet/backend/internal/models"
)

// ErrNotFound means no user matched.
var ErrNotFound = errors.New("user not found")

// Repository handles admin user management queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const publicColumns = `id, email, name, phone, role, status, created_at`

func scanPublic(row pgx.Row) (models.UserPublic, error) {
	var u models.UserPublic
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.Status, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// List returns users newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *models.UserStatus) ([]models.UserPublic, error) {
	q := `SELECT ` + publicColumns + ` FROM users`
	var args []interface{}
	if status != nil {
		q += ` WHERE status = $1`
		args = append(args, *status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		u, err := scanPublic(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Update sets status and/or role. Nil fields are unchanged.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, status *models.UserStatus, role *models.Role) (models.UserPublic, error) {
	return scanPublic(r.pool.QueryRow(ctx, `UPDATE users SET
			status = COALESCE($2, status),
			role = COALESCE($3, role),
			updated_at = NOW()
		WHERE id = $1 RETURNING `+publicColumns, id, status, role))
}

// Delete removes a user.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
