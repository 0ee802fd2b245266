package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/metrics"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/payment"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

type ConfirmResult struct {
	Kind        payment.EventKind
	EventType   string
	Transaction *models.Transaction
}

type BillingService interface {
	InitiatePurchase(ctx context.Context, userID int64, planID, gateway string) (*models.Transaction, error)
	Confirm(ctx context.Context, gateway string, payload []byte, headers http.Header) (*ConfirmResult, error)
	ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
	ExpireStale(ctx context.Context) (int64, error)
}

type billingService struct {
	db           *sql.DB
	ledger       CreditLedger
	transactions repository.TransactionRepository
	adapters     *payment.Registry
	pendingTTL   time.Duration
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewBillingService(
	db *sql.DB,
	ledger CreditLedger,
	transactions repository.TransactionRepository,
	adapters *payment.Registry,
	pendingTTL time.Duration,
	m *metrics.Metrics,
	log *zap.Logger) BillingService {
	return &billingService{
		db:           db,
		ledger:       ledger,
		transactions: transactions,
		adapters:     adapters,
		pendingTTL:   pendingTTL,
		metrics:      m,
		log:          log.Named("billing"),
	}
}

// InitiatePurchase records a PENDING purchase. Its reference is what the
// checkout page passes to the gateway and what the webhook must echo back.
func (s *billingService) InitiatePurchase(ctx context.Context, userID int64, planID, gateway string) (*models.Transaction, error) {
	plan, ok := FindPlan(planID)
	if !ok {
		return nil, apperror.ValidationFailed("plan_id", fmt.Sprintf("unknown plan %q", planID))
	}
	adapter, ok := s.adapters.Get(gateway)
	if !ok {
		return nil, apperror.ValidationFailed("gateway", fmt.Sprintf("unsupported gateway %q", gateway))
	}

	ref, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate purchase reference: %w", err)
	}

	txn := &models.Transaction{
		UserID:           userID,
		Gateway:          adapter.Gateway(),
		GatewayTxnID:     "txn_" + ref,
		PlanID:           plan.ID,
		Amount:           plan.Price,
		Currency:         plan.Currency,
		CreditsPurchased: plan.Credits,
	}
	if _, err := s.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	s.log.Info("purchase initiated",
		zap.Int64("user_id", userID),
		zap.String("plan_id", plan.ID),
		zap.String("gateway", txn.Gateway),
		zap.String("reference", txn.GatewayTxnID),
	)
	return txn, nil
}

// Confirm applies a gateway webhook. The signature is verified before the
// payload is parsed. A purchase leaves PENDING at most once, so a repeated
// delivery finds nothing to do and reports ErrNotFound.
func (s *billingService) Confirm(ctx context.Context, gateway string, payload []byte, headers http.Header) (*ConfirmResult, error) {
	adapter, ok := s.adapters.Get(gateway)
	if !ok {
		return nil, apperror.NotFound("payment gateway", gateway)
	}
	name := adapter.Gateway()

	if err := adapter.Verify(payload, headers); err != nil {
		s.metrics.WebhookEvent(name, "invalid_signature")
		s.log.Warn("webhook signature rejected",
			zap.String("event", "security"),
			zap.String("gateway", name),
			zap.Int("payload_bytes", len(payload)),
		)
		return nil, err
	}

	event, err := adapter.Parse(payload)
	if err != nil {
		s.metrics.WebhookEvent(name, "invalid_payload")
		s.log.Warn("webhook payload rejected", zap.String("gateway", name), zap.Error(err))
		return nil, err
	}

	log := s.log.With(
		zap.String("gateway", name),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("reference", event.Reference),
	)
	result := &ConfirmResult{Kind: event.Kind, EventType: event.Type}

	switch event.Kind {
	case payment.EventCompleted:
		txn, err := s.complete(ctx, name, event.Reference)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				s.metrics.WebhookEvent(name, "duplicate")
				log.Info("no pending purchase for completed event")
			}
			return nil, err
		}
		result.Transaction = txn
		s.metrics.WebhookEvent(name, "completed")
		s.metrics.CreditsPurchased(txn.CreditsPurchased)
		log.Info("purchase completed",
			zap.Int64("user_id", txn.UserID),
			zap.Int64("credits", txn.CreditsPurchased),
		)

	case payment.EventFailed:
		failed, err := s.transactions.Fail(ctx, nil, name, event.Reference)
		if err != nil {
			return nil, err
		}
		if !failed {
			s.metrics.WebhookEvent(name, "duplicate")
			log.Info("no pending purchase for failed event")
			return nil, apperror.NotFound("pending transaction", event.Reference)
		}
		s.metrics.WebhookEvent(name, "failed")
		log.Info("purchase failed")

	default:
		s.metrics.WebhookEvent(name, "ignored")
		log.Info("webhook event ignored")
	}
	return result, nil
}

func (s *billingService) complete(ctx context.Context, gateway, reference string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		txn, err = s.transactions.Complete(ctx, tx, gateway, reference)
		if err != nil {
			return err
		}
		if txn == nil {
			return apperror.NotFound("pending transaction", reference)
		}
		_, err = s.ledger.Credit(ctx, tx, txn.UserID, txn.CreditsPurchased)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *billingService) ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	txns, err := s.transactions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	return txns, nil
}

// ExpireStale fails purchases that stayed PENDING longer than the TTL.
func (s *billingService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.transactions.ExpirePending(ctx, time.Now().Add(-s.pendingTTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("stale purchases expired", zap.Int64("count", n))
	}
	return n, nil
}
