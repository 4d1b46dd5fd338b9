package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socionet/backend/internal/models"
)

// ErrNotFound means no video matched.
var ErrNotFound = errors.New("video not found")

const videoColumns = `id, title, description, storage_path, required_role, is_published, duration_seconds, uploaded_by_id, created_at, updated_at`

// Repository handles video and watch-progress persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a video repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.StoragePath, &v.RequiredRole, &v.IsPublished,
		&v.DurationSeconds, &v.UploadedByID, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts v and fills in its id and timestamps.
func (r *Repository) Create(ctx context.Context, v *models.Video) error {
	const q = `INSERT INTO videos (title, description, storage_path, required_role, is_published, duration_seconds, uploaded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, v.Title, v.Description, v.StoragePath, v.RequiredRole, v.IsPublished, v.DurationSeconds, v.UploadedByID).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID returns a video by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
}

// List returns videos newest first. A nil role returns every video; otherwise
// only published videos for that role.
func (r *Repository) List(ctx context.Context, role *models.Role) ([]models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos`
	var args []interface{}
	if role != nil {
		q += ` WHERE is_published = TRUE AND required_role = $1`
		args = append(args, *role)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// Update applies the set fields of u.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u Update) (*models.Video, error) {
	var sets []string
	args := []interface{}{id}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.DescriptionSet {
		add("description", u.Description)
	}
	if u.RequiredRole != nil {
		add("required_role", *u.RequiredRole)
	}
	if u.IsPublished != nil {
		add("is_published", *u.IsPublished)
	}
	if u.DurationSet {
		add("duration_seconds", u.DurationSeconds)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	q := `UPDATE videos SET ` + strings.Join(sets, ", ") + `, updated_at = NOW() WHERE id = $1 RETURNING ` + videoColumns
	return scanVideo(r.pool.QueryRow(ctx, q, args...))
}

// Delete removes a video.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletedSet returns which of ids the user has completed.
func (r *Repository) CompletedSet(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT video_id FROM video_progress
		WHERE user_id = $1 AND video_id = ANY($2) AND completed = TRUE`, userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// SetProgress upserts the user's completion flag for a video.
func (r *Repository) SetProgress(ctx context.Context, userID, videoID uuid.UUID, completed bool) (models.VideoProgress, error) {
	var completedAt *time.Time
	if completed {
		now := time.Now()
		completedAt = &now
	}
	const q = `INSERT INTO video_progress (user_id, video_id, completed, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW()
		RETURNING user_id, video_id, completed, completed_at, updated_at`
	var p models.VideoProgress
	err := r.pool.QueryRow(ctx, q, userID, videoID, completed, completedAt).
		Scan(&p.UserID, &p.VideoID, &p.Completed, &p.CompletedAt, &p.UpdatedAt)
	return p, err
}
