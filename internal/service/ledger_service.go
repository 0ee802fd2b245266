package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"go.uber.org/zap"
)

// CreditLedger owns every balance mutation. Methods taking a *sql.Tx join
// the caller's transaction; nil runs against the pool.
type CreditLedger interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	TryDebit(ctx context.Context, tx *sql.Tx, userID, amount int64) error
	Credit(ctx context.Context, tx *sql.Tx, userID, amount int64) (int64, error)
	Refund(ctx context.Context, operationID string, userID, amount int64) (bool, error)
}

type creditLedger struct {
	db             *sql.DB
	credits        repository.CreditRepository
	defaultBalance int64
	log            *zap.Logger
}

func NewCreditLedger(db *sql.DB, credits repository.CreditRepository, defaultBalance int64, log *zap.Logger) CreditLedger {
	return &creditLedger{
		db:             db,
		credits:        credits,
		defaultBalance: defaultBalance,
		log:            log.Named("ledger"),
	}
}

// GetBalance creates the ledger entry with the default balance on first use.
func (l *creditLedger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	if err := l.credits.Ensure(ctx, nil, userID, l.defaultBalance); err != nil {
		return 0, err
	}
	c, err := l.credits.GetByUserID(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, fmt.Errorf("ledger entry for user %d vanished", userID)
	}
	return c.Balance, nil
}

// TryDebit subtracts amount only if the balance covers it. A rejected debit
// returns ErrInsufficientCredits and changes nothing.
func (l *creditLedger) TryDebit(ctx context.Context, tx *sql.Tx, userID, amount int64) error {
	if amount <= 0 {
		return nil
	}

	ok, err := l.credits.TryDebit(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	c, err := l.credits.GetByUserID(ctx, tx, userID)
	if err != nil {
		return err
	}
	if c == nil {
		if err := l.credits.Ensure(ctx, tx, userID, l.defaultBalance); err != nil {
			return err
		}
		if ok, err = l.credits.TryDebit(ctx, tx, userID, amount); err != nil {
			return err
		}
		if ok {
			return nil
		}
		return apperror.InsufficientCredits(l.defaultBalance, amount)
	}
	return apperror.InsufficientCredits(c.Balance, amount)
}

func (l *creditLedger) Credit(ctx context.Context, tx *sql.Tx, userID, amount int64) (int64, error) {
	if err := l.credits.Ensure(ctx, tx, userID, l.defaultBalance); err != nil {
		return 0, err
	}
	return l.credits.Add(ctx, tx, userID, amount)
}

// Refund returns credits taken by operationID. Repeated calls for the same
// operation credit the account at most once; the result reports whether this
// call applied it.
func (l *creditLedger) Refund(ctx context.Context, operationID string, userID, amount int64) (bool, error) {
	var applied bool
	err := withTx(ctx, l.db, func(tx *sql.Tx) error {
		inserted, err := l.credits.RecordRefund(ctx, tx, &models.CreditRefund{
			OperationID: operationID,
			UserID:      userID,
			Amount:      amount,
		})
		if err != nil || !inserted {
			return err
		}
		if _, err := l.Credit(ctx, tx, userID, amount); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("refund operation %s: %w", operationID, err)
	}
	if applied {
		l.log.Info("credits refunded",
			zap.String("operation_id", operationID),
			zap.Int64("user_id", userID),
			zap.Int64("amount", amount),
		)
	}
	return applied, nil
}
