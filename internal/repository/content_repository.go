package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

type ContentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, c *models.Content) (bool, error)
	GetByID(ctx context.Context, id, userID int64) (*models.Content, error)
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Content, error)
	CountByUserID(ctx context.Context, userID int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error)
	ClaimPost(ctx context.Context, contentID int64, platform, operationID string) (bool, error)
	ReleasePost(ctx context.Context, contentID int64, platform, operationID string) error
}

type contentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

const contentColumns = `id, user_id, operation_id, title, input_params, generated_text, generated_image_url, status, created_at`

// Create inserts the record and sets c.ID. It returns false, leaving c.ID
// unset, when a record for the same operation already exists.
func (r *contentRepository) Create(ctx context.Context, tx *sql.Tx, c *models.Content) (bool, error) {
	query := `
		INSERT INTO contents (user_id, operation_id, title, input_params, generated_text, generated_image_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (operation_id) DO NOTHING
		RETURNING id
	`
	if c.Status == "" {
		c.Status = models.ContentStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	err := pick(r.db, tx).QueryRowContext(ctx, query,
		c.UserID,
		c.OperationID,
		c.Title,
		string(c.InputParams),
		c.GeneratedText,
		c.GeneratedImageURL,
		c.Status,
		c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create content: %w", err)
	}
	return true, nil
}

func (r *contentRepository) GetByID(ctx context.Context, id, userID int64) (*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1 AND user_id = $2`

	c, err := scanContent(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get content %d: %w", id, err)
	}
	return c, nil
}

func (r *contentRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	var contents []*models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

func (r *contentRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count contents: %w", err)
	}
	return n, nil
}

// UpdateStatus moves the record from one status to another and reports false
// if the stored status no longer equals from.
func (r *contentRepository) UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE contents SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update content %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClaimPost reserves the (content, platform) pair for one operation. It
// returns false when another operation already holds it.
func (r *contentRepository) ClaimPost(ctx context.Context, contentID int64, platform, operationID string) (bool, error) {
	query := `
		INSERT INTO content_posts (content_id, platform, operation_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_id, platform) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, contentID, platform, operationID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim post %d/%s: %w", contentID, platform, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleasePost drops a claim, but only the one held by operationID.
func (r *contentRepository) ReleasePost(ctx context.Context, contentID int64, platform, operationID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM content_posts WHERE content_id = $1 AND platform = $2 AND operation_id = $3`,
		contentID, platform, operationID)
	if err != nil {
		return fmt.Errorf("release post %d/%s: %w", contentID, platform, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*models.Content, error) {
	var c models.Content
	var params []byte
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.OperationID,
		&c.Title,
		&params,
		&c.GeneratedText,
		&c.GeneratedImageURL,
		&c.Status,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.InputParams = params
	return &c, nil
}
