package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

// TokenCipher is the encode/decode boundary for stored OAuth tokens.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SocialConnectionRepository stores tokens encrypted and hands them out
// decrypted. Callers never see ciphertext.
type SocialConnectionRepository interface {
	Upsert(ctx context.Context, c *models.SocialConnection) (int64, error)
	Get(ctx context.Context, userID int64, platform string) (*models.SocialConnection, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.SocialConnection, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	Remove(ctx context.Context, userID int64, platform string) (bool, error)
}

type socialConnectionRepository struct {
	db     *sql.DB
	cipher TokenCipher
}

func NewSocialConnectionRepository(db *sql.DB, cipher TokenCipher) SocialConnectionRepository {
	return &socialConnectionRepository{db: db, cipher: cipher}
}

const connectionColumns = `id, user_id, platform, profile_id, access_token, refresh_token, expires_at, created_at, updated_at`

func (r *socialConnectionRepository) Upsert(ctx context.Context, c *models.SocialConnection) (int64, error) {
	access, refresh, err := r.encryptPair(c.AccessToken, c.RefreshToken)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO social_connections (user_id, platform, profile_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			profile_id = excluded.profile_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx, query,
		c.UserID,
		c.Platform,
		c.ProfileID,
		access,
		refresh,
		c.ExpiresAt.UTC(),
		now,
	).Scan(&c.ID)
	if err != nil {
		return 0, fmt.Errorf("upsert %s connection: %w", c.Platform, err)
	}
	return c.ID, nil
}

func (r *socialConnectionRepository) Get(ctx context.Context, userID int64, platform string) (*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE user_id = $1 AND platform = $2`

	c, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s connection: %w", platform, err)
	}
	if err := r.decrypt(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByUserID returns connection metadata only. Tokens are left empty.
func (r *socialConnectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE user_id = $1 ORDER BY platform`

	conns, err := r.list(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		c.AccessToken, c.RefreshToken = "", ""
	}
	return conns, nil
}

func (r *socialConnectionRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE expires_at BETWEEN $1 AND $2 AND refresh_token <> ''`

	conns, err := r.list(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if err := r.decrypt(c); err != nil {
			return nil, err
		}
	}
	return conns, nil
}

func (r *socialConnectionRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	access, refresh, err := r.encryptPair(accessToken, refreshToken)
	if err != nil {
		return err
	}

	query := `
		UPDATE social_connections
		SET access_token = $1, refresh_token = $2, expires_at = $3, updated_at = $4
		WHERE id = $5
	`
	_, err = r.db.ExecContext(ctx, query, access, refresh, expiresAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update tokens for connection %d: %w", id, err)
	}
	return nil
}

func (r *socialConnectionRepository) Remove(ctx context.Context, userID int64, platform string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM social_connections WHERE user_id = $1 AND platform = $2`, userID, platform)
	if err != nil {
		return false, fmt.Errorf("remove %s connection: %w", platform, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *socialConnectionRepository) list(ctx context.Context, query string, args ...any) ([]*models.SocialConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.SocialConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (r *socialConnectionRepository) encryptPair(access, refresh string) (string, string, error) {
	encAccess, err := r.cipher.Encrypt(access)
	if err != nil {
		return "", "", fmt.Errorf("encrypt access token: %w", err)
	}
	encRefresh, err := r.cipher.Encrypt(refresh)
	if err != nil {
		return "", "", fmt.Errorf("encrypt refresh token: %w", err)
	}
	return encAccess, encRefresh, nil
}

func (r *socialConnectionRepository) decrypt(c *models.SocialConnection) error {
	var err error
	if c.AccessToken, err = r.cipher.Decrypt(c.AccessToken); err != nil {
		return fmt.Errorf("decrypt access token for connection %d: %w", c.ID, err)
	}
	if c.RefreshToken, err = r.cipher.Decrypt(c.RefreshToken); err != nil {
		return fmt.Errorf("decrypt refresh token for connection %d: %w", c.ID, err)
	}
	return nil
}

func scanConnection(row rowScanner) (*models.SocialConnection, error) {
	var c models.SocialConnection
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Platform,
		&c.ProfileID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
