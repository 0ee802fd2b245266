package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/metrics"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"go.uber.org/zap"
)

const defaultPageSize = 20

type GenerateResult struct {
	Content *models.Content
	Charged int64
	// ImageFailure is set when the image was requested but not produced.
	// The image portion is not charged in that case.
	ImageFailure gateway.Kind
}

type ContentPage struct {
	Contents []*models.Content `json:"contents"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

type ContentService interface {
	Generate(ctx context.Context, userID int64, params models.GenerationParams) (*GenerateResult, error)
	PersistPending(ctx context.Context, p PendingContent) error
	Get(ctx context.Context, userID, contentID int64) (*models.Content, error)
	List(ctx context.Context, userID int64, page, pageSize int) (*ContentPage, error)
}

type contentService struct {
	db          *sql.DB
	ledger      CreditLedger
	contents    repository.ContentRepository
	text        gateway.TextGenerator
	images      gateway.ImageGenerator
	compensator Compensator
	costs       config.Costs
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewContentService(
	db *sql.DB,
	ledger CreditLedger,
	contents repository.ContentRepository,
	text gateway.TextGenerator,
	images gateway.ImageGenerator,
	compensator Compensator,
	costs config.Costs,
	m *metrics.Metrics,
	log *zap.Logger) ContentService {
	return &contentService{
		db:          db,
		ledger:      ledger,
		contents:    contents,
		text:        text,
		images:      images,
		compensator: compensator,
		costs:       costs,
		metrics:     m,
		log:         log.Named("engine"),
	}
}

func (s *contentService) cost(p models.GenerationParams) int64 {
	cost := s.costs.Text
	if p.GenerateImage {
		cost += s.costs.Image
	}
	return cost
}

// Generate runs one metered generation. The balance is only read before the
// provider calls; the debit and the content insert commit together after
// them, so a failed generation is never charged.
func (s *contentService) Generate(ctx context.Context, userID int64, params models.GenerationParams) (*GenerateResult, error) {
	op := newOperation("generate", userID, s.log)

	cost := s.cost(params)
	op.to(StateCostComputed)

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		op.reject()
		return nil, apperror.InsufficientCredits(balance, cost)
	}
	op.to(StateBalanceChecked)

	text, err := s.text.GenerateText(ctx, BuildTextPrompt(params))
	if err != nil {
		s.recordFailure(op, err)
		op.abandon()
		return nil, &apperror.GenerationFailed{Kind: gateway.KindOf(err), Cause: err}
	}

	result := &GenerateResult{}
	var imageURL *string
	if params.GenerateImage {
		url, err := s.images.GenerateImage(ctx, BuildImagePrompt(params))
		if err != nil {
			s.recordFailure(op, err)
			result.ImageFailure = gateway.KindOf(err)
			cost -= s.costs.Image
		} else {
			imageURL = &url
		}
	}
	op.to(StateEffectInvoked)

	inputParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode input params: %w", err)
	}
	content := &models.Content{
		UserID:            userID,
		OperationID:       op.ID,
		Title:             params.Title,
		InputParams:       inputParams,
		GeneratedText:     text,
		GeneratedImageURL: imageURL,
	}

	// The provider work is done; finish even if the caller went away.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.persist(persistCtx, content, cost); err != nil {
		return nil, s.handlePersistFailure(persistCtx, op, content, cost, err)
	}
	op.to(StatePersisted)
	s.metrics.CreditDebited(op.Kind, cost)

	result.Content = content
	result.Charged = cost
	return result, nil
}

func (s *contentService) persist(ctx context.Context, content *models.Content, cost int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.ledger.TryDebit(ctx, tx, content.UserID, cost); err != nil {
			return err
		}
		created, err := s.contents.Create(ctx, tx, content)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("content for operation %s already exists", content.OperationID)
		}
		return nil
	})
}

func (s *contentService) handlePersistFailure(ctx context.Context, op *operation, content *models.Content, cost int64, err error) error {
	// Another request spent the credits between the balance read and the
	// debit. Nothing was charged; the caller starts over.
	if errors.Is(err, apperror.ErrInsufficientCredits) {
		op.to(StateRolledBack)
		op.log.Warn("debit race lost, generated content discarded", zap.Int64("cost", cost))
		return &apperror.AppError{
			Err:     apperror.ErrPersistenceConflict,
			Message: "Your balance changed while the content was being generated. Please try again.",
		}
	}

	op.log.Error("persisting generated content failed", zap.Error(err))
	pending := PendingContent{
		OperationID:       op.ID,
		UserID:            content.UserID,
		Title:             content.Title,
		InputParams:       content.InputParams,
		GeneratedText:     content.GeneratedText,
		GeneratedImageURL: content.GeneratedImageURL,
		Cost:              cost,
	}
	if qerr := s.compensator.EnqueuePersist(ctx, pending); qerr != nil {
		op.to(StateRolledBack)
		op.log.Error("queueing content persistence failed",
			zap.Error(qerr),
			zap.String("title", content.Title),
			zap.String("generated_text", content.GeneratedText),
		)
		return fmt.Errorf("persist content for operation %s: %w", op.ID, err)
	}

	op.to(StatePersistQueued)
	s.metrics.PersistQueued()
	return &apperror.AppError{
		Err:     apperror.ErrPersistenceQueued,
		Message: "Your content was generated and will appear in your library shortly.",
	}
}

// PersistPending stores content handed over by the persistence queue. It is
// safe to run more than once for the same operation.
func (s *contentService) PersistPending(ctx context.Context, p PendingContent) error {
	content := &models.Content{
		UserID:            p.UserID,
		OperationID:       p.OperationID,
		Title:             p.Title,
		InputParams:       p.InputParams,
		GeneratedText:     p.GeneratedText,
		GeneratedImageURL: p.GeneratedImageURL,
	}
	log := s.log.With(zap.String("operation_id", p.OperationID), zap.Int64("user_id", p.UserID))

	var charged bool
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		created, err := s.contents.Create(ctx, tx, content)
		if err != nil || !created {
			return err
		}

		err = s.ledger.TryDebit(ctx, tx, p.UserID, p.Cost)
		switch {
		case err == nil:
			charged = true
		case errors.Is(err, apperror.ErrInsufficientCredits):
			// Keep the content; losing it would be worse than the missed charge.
			log.Warn("balance no longer covers queued content, stored without charge", zap.Int64("cost", p.Cost))
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist queued content %s: %w", p.OperationID, err)
	}
	if charged {
		s.metrics.CreditDebited("generate", p.Cost)
	}
	return nil
}

func (s *contentService) Get(ctx context.Context, userID, contentID int64) (*models.Content, error) {
	c, err := s.contents.GetByID(ctx, contentID, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("content", contentID)
	}
	return c, nil
}

func (s *contentService) List(ctx context.Context, userID int64, page, pageSize int) (*ContentPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}

	contents, err := s.contents.ListByUserID(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.contents.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contents == nil {
		contents = []*models.Content{}
	}
	return &ContentPage{Contents: contents, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *contentService) recordFailure(op *operation, err error) {
	provider := "unknown"
	var f *gateway.Failure
	if errors.As(err, &f) {
		provider = f.Provider
	}
	kind := gateway.KindOf(err)
	s.metrics.ExternalFailure(provider, string(kind))
	op.log.Warn("external call failed",
		zap.String("provider", provider),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}
