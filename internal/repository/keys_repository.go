package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

type ApiKeyRepository interface {
	GetUserIDByHash(ctx context.Context, keyHash string) (int64, bool, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	Create(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	Remove(ctx context.Context, id, userID int64) (bool, error)
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) GetUserIDByHash(ctx context.Context, keyHash string) (int64, bool, error) {
	var userID int64
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM api_keys WHERE key_hash = $1`, keyHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup api key: %w", err)
	}
	return userID, true, nil
}

func (r *apiKeyRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	query := `SELECT id, user_id, key_hash, prefix, created_at FROM api_keys WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var apiKeys []*models.ApiKey
	for rows.Next() {
		var k models.ApiKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.Prefix, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		apiKeys = append(apiKeys, &k)
	}
	return apiKeys, rows.Err()
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	query := `INSERT INTO api_keys (user_id, key_hash, prefix, created_at) VALUES ($1, $2, $3, $4) RETURNING id`

	apiKey.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, apiKey.UserID, apiKey.KeyHash, apiKey.Prefix, apiKey.CreatedAt).Scan(&apiKey.ID)
	if err != nil {
		return 0, fmt.Errorf("create api key: %w", err)
	}
	return apiKey.ID, nil
}

func (r *apiKeyRepository) Remove(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("remove api key %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
