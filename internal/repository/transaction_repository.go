package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, t *models.Transaction) (int64, error)
	GetByGatewayTxnID(ctx context.Context, gateway, gatewayTxnID string) (*models.Transaction, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error)
	Complete(ctx context.Context, tx *sql.Tx, gateway, gatewayTxnID string) (*models.Transaction, error)
	Fail(ctx context.Context, tx *sql.Tx, gateway, gatewayTxnID string) (bool, error)
	ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, user_id, gateway, gateway_txn_id, plan_id, amount, currency, credits_purchased, status, created_at, updated_at`

func (r *transactionRepository) Create(ctx context.Context, t *models.Transaction) (int64, error) {
	query := `
		INSERT INTO transactions (user_id, gateway, gateway_txn_id, plan_id, amount, currency, credits_purchased, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	now := time.Now().UTC()
	t.Status = models.TransactionPending
	t.CreatedAt, t.UpdatedAt = now, now

	err := r.db.QueryRowContext(ctx, query,
		t.UserID,
		t.Gateway,
		t.GatewayTxnID,
		t.PlanID,
		t.Amount,
		t.Currency,
		t.CreditsPurchased,
		t.Status,
		now,
		now,
	).Scan(&t.ID)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	return t.ID, nil
}

func (r *transactionRepository) GetByGatewayTxnID(ctx context.Context, gateway, gatewayTxnID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway = $1 AND gateway_txn_id = $2`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, gateway, gatewayTxnID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %s: %w", gatewayTxnID, err)
	}
	return t, nil
}

func (r *transactionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Complete transitions a PENDING transaction to COMPLETED and returns it. It
// returns nil when no PENDING row matches, which is how duplicate deliveries
// are detected.
func (r *transactionRepository) Complete(ctx context.Context, tx *sql.Tx, gateway, gatewayTxnID string) (*models.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = $2
		WHERE gateway = $3 AND gateway_txn_id = $4 AND status = $5
		RETURNING ` + transactionColumns

	t, err := scanTransaction(pick(r.db, tx).QueryRowContext(ctx, query,
		models.TransactionCompleted, time.Now().UTC(), gateway, gatewayTxnID, models.TransactionPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("complete transaction %s: %w", gatewayTxnID, err)
	}
	return t, nil
}

func (r *transactionRepository) Fail(ctx context.Context, tx *sql.Tx, gateway, gatewayTxnID string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = $2
		WHERE gateway = $3 AND gateway_txn_id = $4 AND status = $5
	`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		models.TransactionFailed, time.Now().UTC(), gateway, gatewayTxnID, models.TransactionPending)
	if err != nil {
		return false, fmt.Errorf("fail transaction %s: %w", gatewayTxnID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *transactionRepository) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = $2
		WHERE status = $3 AND created_at < $4
	`
	res, err := r.db.ExecContext(ctx, query,
		models.TransactionFailed, time.Now().UTC(), models.TransactionPending, createdBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire pending transactions: %w", err)
	}
	return res.RowsAffected()
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Gateway,
		&t.GatewayTxnID,
		&t.PlanID,
		&t.Amount,
		&t.Currency,
		&t.CreditsPurchased,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
