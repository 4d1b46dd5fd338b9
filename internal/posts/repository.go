package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socionet/backend/internal/models"
)

// ErrNotFound means no post matched.
var ErrNotFound = errors.New("post not found")

const postColumns = `id, title, content, category, is_published, is_pinned, views, published_at, created_at, updated_at`

// ListFilter narrows a post listing.
type ListFilter struct {
	PublishedOnly bool
	Category      *models.PostCategory
	Limit         int // 0 means unlimited
}

// Update lists the fields to change on a post.
type Update struct {
	Title      *string
	ContentSet bool
	Content    string
	Category   *models.PostCategory
	IsPinned   *bool
}

// Repository handles post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a post repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Category, &p.IsPublished, &p.IsPinned,
		&p.Views, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns posts. Published listings put pinned posts first; both order
// by publish time, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Post, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.PublishedOnly {
		where = append(where, "is_published = TRUE")
	}
	if f.Category != nil {
		args = append(args, *f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	q := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.PublishedOnly {
		q += ` ORDER BY is_pinned DESC, published_at DESC`
	} else {
		q += ` ORDER BY published_at DESC`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// GetPublished returns a published post by ID.
func (r *Repository) GetPublished(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 AND is_published = TRUE`, id))
}

// IncrementViews bumps the view counter and returns the updated post.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx,
		`UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING `+postColumns, id))
}

// Create inserts p as published and fills in server-set fields.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	const q = `INSERT INTO posts (title, content, category, is_published, is_pinned)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING ` + postColumns
	got, err := scanPost(r.pool.QueryRow(ctx, q, p.Title, p.Content, p.Category, p.IsPinned))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// Update applies the set fields of u. Every edit republishes the post.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u Update) (*models.Post, error) {
	sets := []string{"is_published = TRUE", "updated_at = NOW()"}
	args := []interface{}{id}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.ContentSet {
		add("content", u.Content)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.IsPinned != nil {
		add("is_pinned", *u.IsPinned)
	}
	q := `UPDATE posts SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + postColumns
	return scanPost(r.pool.QueryRow(ctx, q, args...))
}

// Delete removes a post.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
