package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/metrics"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const statusUpdateAttempts = 3

// VerifierStore keeps PKCE verifiers between redirect and callback.
type VerifierStore interface {
	SaveVerifier(ctx context.Context, state, verifier string) error
	TakeVerifier(ctx context.Context, state string) (string, error)
}

type PostOutcome struct {
	ContentID  int64  `json:"content_id"`
	Platform   string `json:"platform"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Charged    int64  `json:"credits_charged"`
}

type SocialService interface {
	Post(ctx context.Context, userID, contentID int64, platform string) (*PostOutcome, error)
	AuthURL(ctx context.Context, platform, state string) (string, error)
	Callback(ctx context.Context, platform, code, state string, userID int64) error
	RefreshConnection(ctx context.Context, conn *models.SocialConnection) error
	ListConnections(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	RemoveConnection(ctx context.Context, userID int64, platform string) error
}

type socialService struct {
	ledger      CreditLedger
	contents    repository.ContentRepository
	connections repository.SocialConnectionRepository
	providers   map[string]*SocialProvider
	verifiers   VerifierStore
	compensator Compensator
	postCost    int64
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewSocialService(
	ledger CreditLedger,
	contents repository.ContentRepository,
	connections repository.SocialConnectionRepository,
	verifiers VerifierStore,
	compensator Compensator,
	postCost int64,
	m *metrics.Metrics,
	log *zap.Logger,
	providers ...*SocialProvider) SocialService {
	byPlatform := make(map[string]*SocialProvider, len(providers))
	for _, p := range providers {
		byPlatform[p.Platform] = p
	}
	return &socialService{
		ledger:      ledger,
		contents:    contents,
		connections: connections,
		providers:   byPlatform,
		verifiers:   verifiers,
		compensator: compensator,
		postCost:    postCost,
		metrics:     m,
		log:         log.Named("social"),
	}
}

func (s *socialService) provider(platform string) (*SocialProvider, error) {
	p, ok := s.providers[platform]
	if !ok {
		return nil, &apperror.AppError{
			Err:     apperror.ErrUnsupportedPlatform,
			Message: fmt.Sprintf("platform %q is not supported", platform),
			Field:   "platform",
		}
	}
	return p, nil
}

// Post charges the fixed post cost up front and refunds it if the post does
// not happen.
func (s *socialService) Post(ctx context.Context, userID, contentID int64, platform string) (*PostOutcome, error) {
	p, err := s.provider(platform)
	if err != nil {
		return nil, err
	}

	op := newOperation("post", userID, s.log)
	op.log = op.log.With(zap.Int64("content_id", contentID), zap.String("platform", platform))
	cost := s.postCost
	op.to(StateCostComputed)

	if err := s.ledger.TryDebit(ctx, nil, userID, cost); err != nil {
		if errors.Is(err, apperror.ErrInsufficientCredits) {
			op.reject()
		}
		return nil, err
	}
	op.to(StateBalanceChecked)

	content, conn, err := s.loadPostTarget(ctx, userID, contentID, platform)
	if err == nil {
		err = s.claim(ctx, op, contentID, platform)
	}
	if err != nil {
		s.refund(ctx, op, cost)
		op.to(StateRolledBack)
		return nil, err
	}

	req := gateway.PostRequest{
		AccessToken: conn.AccessToken,
		ProfileID:   conn.ProfileID,
		Text:        content.GeneratedText,
	}
	if content.GeneratedImageURL != nil {
		req.ImageURL = *content.GeneratedImageURL
	}

	res, err := p.Poster.Post(ctx, req)
	if err != nil && gateway.KindOf(err) == gateway.AuthExpired {
		op.log.Info("access token rejected, refreshing once")
		if rerr := s.RefreshConnection(ctx, conn); rerr != nil {
			op.log.Warn("token refresh failed", zap.Error(rerr))
		} else {
			req.AccessToken = conn.AccessToken
			res, err = p.Poster.Post(ctx, req)
		}
	}
	if err != nil {
		kind := gateway.KindOf(err)
		s.metrics.ExternalFailure(platform, string(kind))
		op.log.Warn("social post failed", zap.String("kind", string(kind)), zap.Error(err))
		op.to(StateEffectFailed)
		s.release(ctx, op, contentID, platform)
		refunded := s.refund(ctx, op, cost)
		op.to(StateRolledBack)
		return nil, &apperror.PostFailed{Kind: kind, Platform: platform, Refunded: refunded, Cause: err}
	}
	op.to(StateEffectInvoked)
	s.metrics.CreditDebited(op.Kind, cost)

	status, err := s.advanceStatus(context.WithoutCancel(ctx), content, platform)
	if err != nil {
		// The post is live and paid for; only the bookkeeping lags.
		op.log.Error("updating content status failed", zap.String("external_id", res.ExternalID), zap.Error(err))
	}
	op.to(StatePersisted)

	return &PostOutcome{
		ContentID:  content.ID,
		Platform:   platform,
		ExternalID: res.ExternalID,
		Status:     status,
		Charged:    cost,
	}, nil
}

func (s *socialService) loadPostTarget(ctx context.Context, userID, contentID int64, platform string) (*models.Content, *models.SocialConnection, error) {
	content, err := s.contents.GetByID(ctx, contentID, userID)
	if err != nil {
		return nil, nil, err
	}
	if content == nil {
		return nil, nil, apperror.NotFound("content", contentID)
	}
	if models.IsPostedTo(content.Status, platform) {
		return nil, nil, apperror.AlreadyPosted(contentID, platform)
	}

	conn, err := s.connections.Get(ctx, userID, platform)
	if err != nil {
		return nil, nil, err
	}
	if conn == nil {
		return nil, nil, apperror.NotFound("social connection", platform)
	}
	return content, conn, nil
}

// claim reserves the (content, platform) pair so that concurrent posts of
// the same content cannot both reach the provider.
func (s *socialService) claim(ctx context.Context, op *operation, contentID int64, platform string) error {
	ok, err := s.contents.ClaimPost(ctx, contentID, platform, op.ID)
	if err != nil {
		return err
	}
	if !ok {
		op.log.Info("post already claimed by another operation")
		return apperror.AlreadyPosted(contentID, platform)
	}
	return nil
}

func (s *socialService) release(ctx context.Context, op *operation, contentID int64, platform string) {
	if err := s.contents.ReleasePost(context.WithoutCancel(ctx), contentID, platform, op.ID); err != nil {
		op.log.Error("releasing post claim failed", zap.Error(err))
	}
}

// advanceStatus moves the content up the status lattice, re-reading it when
// a concurrent post changed the status first.
func (s *socialService) advanceStatus(ctx context.Context, content *models.Content, platform string) (string, error) {
	current := content.Status
	for attempt := 0; attempt < statusUpdateAttempts; attempt++ {
		next := models.NextContentStatus(current, platform)
		if next == current {
			return current, nil
		}
		ok, err := s.contents.UpdateStatus(ctx, content.ID, current, next)
		if err != nil {
			return current, err
		}
		if ok {
			content.Status = next
			return next, nil
		}

		fresh, err := s.contents.GetByID(ctx, content.ID, content.UserID)
		if err != nil {
			return current, err
		}
		if fresh == nil {
			return current, apperror.NotFound("content", content.ID)
		}
		current = fresh.Status
	}
	return current, fmt.Errorf("content %d status kept changing", content.ID)
}

// refund returns the post credit. When the ledger is unreachable the refund
// is queued and false is returned.
func (s *socialService) refund(ctx context.Context, op *operation, amount int64) bool {
	ctx = context.WithoutCancel(ctx)

	_, err := s.ledger.Refund(ctx, op.ID, op.UserID, amount)
	if err == nil {
		s.metrics.CreditRefunded(op.Kind, amount)
		return true
	}

	op.log.Error("refund failed, queueing retry", zap.Error(err))
	pending := PendingRefund{OperationID: op.ID, UserID: op.UserID, Amount: amount}
	if qerr := s.compensator.EnqueueRefund(ctx, pending); qerr != nil {
		op.log.Error("queueing refund failed", zap.Error(qerr), zap.Int64("amount", amount))
	}
	return false
}

func (s *socialService) AuthURL(ctx context.Context, platform, state string) (string, error) {
	p, err := s.provider(platform)
	if err != nil {
		return "", err
	}
	if !p.PKCE {
		return p.OAuth.AuthCodeURL(state), nil
	}

	verifier := oauth2.GenerateVerifier()
	if err := s.verifiers.SaveVerifier(ctx, state, verifier); err != nil {
		return "", err
	}
	return p.OAuth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// Callback exchanges the authorization code and stores the connection,
// replacing any previous one for the same platform.
func (s *socialService) Callback(ctx context.Context, platform, code, state string, userID int64) error {
	p, err := s.provider(platform)
	if err != nil {
		return err
	}
	if code == "" {
		return apperror.ValidationFailed("code", "authorization code is missing")
	}

	var opts []oauth2.AuthCodeOption
	if p.PKCE {
		verifier, err := s.verifiers.TakeVerifier(ctx, state)
		if err != nil {
			return &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "authorization session expired, please reconnect"}
		}
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := p.OAuth.Exchange(ctx, code, opts...)
	if err != nil {
		return fmt.Errorf("exchange %s code: %w", platform, err)
	}

	profileID, err := p.ProfileID(ctx, p.OAuth.Client(ctx, token))
	if err != nil {
		return fmt.Errorf("resolve %s profile: %w", platform, err)
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = GetExpiresAt(int(time.Hour / time.Second))
	}

	_, err = s.connections.Upsert(ctx, &models.SocialConnection{
		UserID:       userID,
		Platform:     platform,
		ProfileID:    profileID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return err
	}
	s.log.Info("social account connected", zap.Int64("user_id", userID), zap.String("platform", platform))
	return nil
}

// RefreshConnection trades the refresh token for new tokens, stores them and
// updates conn in place.
func (s *socialService) RefreshConnection(ctx context.Context, conn *models.SocialConnection) error {
	p, err := s.provider(conn.Platform)
	if err != nil {
		return err
	}
	if conn.RefreshToken == "" {
		return errNoRefreshToken
	}

	// An expired token forces the source to hit the token endpoint.
	stale := &oauth2.Token{RefreshToken: conn.RefreshToken, Expiry: time.Unix(1, 0)}
	token, err := p.OAuth.TokenSource(ctx, stale).Token()
	if err != nil {
		return fmt.Errorf("refresh %s token for user %d: %w", conn.Platform, conn.UserID, err)
	}

	refresh := token.RefreshToken
	if refresh == "" {
		refresh = conn.RefreshToken
	}
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = GetExpiresAt(int(time.Hour / time.Second))
	}

	if err := s.connections.UpdateTokens(ctx, conn.ID, token.AccessToken, refresh, expiresAt); err != nil {
		return err
	}
	conn.AccessToken, conn.RefreshToken, conn.ExpiresAt = token.AccessToken, refresh, expiresAt
	return nil
}

func (s *socialService) ListConnections(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	conns, err := s.connections.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []*models.SocialConnection{}
	}
	return conns, nil
}

func (s *socialService) RemoveConnection(ctx context.Context, userID int64, platform string) error {
	removed, err := s.connections.Remove(ctx, userID, platform)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NotFound("social connection", platform)
	}
	return nil
}
