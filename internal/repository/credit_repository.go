package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

type CreditRepository interface {
	Ensure(ctx context.Context, tx *sql.Tx, userID, defaultBalance int64) error
	GetByUserID(ctx context.Context, tx *sql.Tx, userID int64) (*models.Credit, error)
	TryDebit(ctx context.Context, tx *sql.Tx, userID, amount int64) (bool, error)
	Add(ctx context.Context, tx *sql.Tx, userID, amount int64) (int64, error)
	RecordRefund(ctx context.Context, tx *sql.Tx, refund *models.CreditRefund) (bool, error)
}

type creditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) CreditRepository {
	return &creditRepository{db: db}
}

func (r *creditRepository) Ensure(ctx context.Context, tx *sql.Tx, userID, defaultBalance int64) error {
	query := `
		INSERT INTO credits (user_id, balance, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, userID, defaultBalance, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure credits for user %d: %w", userID, err)
	}
	return nil
}

func (r *creditRepository) GetByUserID(ctx context.Context, tx *sql.Tx, userID int64) (*models.Credit, error) {
	query := `SELECT id, user_id, balance, last_updated FROM credits WHERE user_id = $1`

	var c models.Credit
	err := pick(r.db, tx).QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.Balance, &c.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credits for user %d: %w", userID, err)
	}
	return &c, nil
}

// TryDebit subtracts amount only if the balance covers it. The check and the
// subtraction are one statement, so concurrent debits on the same row are
// serialized by the database.
func (r *creditRepository) TryDebit(ctx context.Context, tx *sql.Tx, userID, amount int64) (bool, error) {
	query := `
		UPDATE credits
		SET balance = balance - $2, last_updated = $3
		WHERE user_id = $1 AND balance >= $2
	`
	res, err := pick(r.db, tx).ExecContext(ctx, query, userID, amount, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("debit user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit user %d: %w", userID, err)
	}
	return n == 1, nil
}

func (r *creditRepository) Add(ctx context.Context, tx *sql.Tx, userID, amount int64) (int64, error) {
	query := `
		UPDATE credits
		SET balance = balance + $2, last_updated = $3
		WHERE user_id = $1
		RETURNING balance
	`
	var balance int64
	err := pick(r.db, tx).QueryRowContext(ctx, query, userID, amount, time.Now().UTC()).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("credit user %d: %w", userID, err)
	}
	return balance, nil
}

// RecordRefund reports false when a refund for the operation already exists.
func (r *creditRepository) RecordRefund(ctx context.Context, tx *sql.Tx, refund *models.CreditRefund) (bool, error) {
	query := `
		INSERT INTO credit_refunds (operation_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (operation_id) DO NOTHING
	`
	res, err := pick(r.db, tx).ExecContext(ctx, query, refund.OperationID, refund.UserID, refund.Amount, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record refund %s: %w", refund.OperationID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record refund %s: %w", refund.OperationID, err)
	}
	return n == 1, nil
}
