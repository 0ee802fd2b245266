package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/metrics"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var launchParams = models.GenerationParams{Title: "Launch day", Niche: "saas", Tone: "upbeat"}

func newContentService(env *testEnv, text gateway.TextGenerator, image gateway.ImageGenerator) ContentService {
	return NewContentService(env.db, env.ledger, env.contents, text, image, env.compensator, testCosts, env.metrics, env.log)
}

func countContents(t *testing.T, env *testEnv, userID int64) int64 {
	t.Helper()
	n, err := env.contents.CountByUserID(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func TestGenerateTextOnly(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	text := &fakeText{text: "We shipped."}
	image := &fakeImage{}
	svc := newContentService(env, text, image)

	res, err := svc.Generate(context.Background(), 1, launchParams)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Charged)
	assert.Equal(t, models.ContentStatusDraft, res.Content.Status)
	assert.Nil(t, res.Content.GeneratedImageURL)
	assert.Equal(t, int64(9), env.balance(t, 1))
	assert.Equal(t, int64(1), countContents(t, env, 1))
	assert.Zero(t, image.calls)
	require.Len(t, text.prompts, 1)
	assert.Contains(t, text.prompts[0], "- Title: Launch day")
}

func TestGenerateWithImage(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	svc := newContentService(env, &fakeText{text: "t"}, &fakeImage{url: "https://cdn.example.com/a.png"})

	params := launchParams
	params.GenerateImage = true
	res, err := svc.Generate(context.Background(), 1, params)
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.Charged)
	require.NotNil(t, res.Content.GeneratedImageURL)
	assert.Equal(t, "https://cdn.example.com/a.png", *res.Content.GeneratedImageURL)
	assert.Equal(t, int64(6), env.balance(t, 1))
}

func TestGenerateInsufficientCredits(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 0)
	text := &fakeText{text: "never"}
	svc := newContentService(env, text, &fakeImage{})

	params := launchParams
	params.GenerateImage = true
	_, err := svc.Generate(context.Background(), 1, params)

	require.ErrorIs(t, err, apperror.ErrInsufficientCredits)
	assert.Equal(t, int64(0), env.balance(t, 1))
	assert.Equal(t, int64(0), countContents(t, env, 1))
	assert.Empty(t, text.prompts, "provider must not be called without funds")
}

func TestGenerateTextFailureIsNotCharged(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	svc := newContentService(env, &fakeText{err: failure(gateway.RateLimited)}, &fakeImage{})

	_, err := svc.Generate(context.Background(), 1, launchParams)

	var genErr *apperror.GenerationFailed
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, gateway.RateLimited, genErr.Kind)
	assert.Equal(t, int64(10), env.balance(t, 1))
	assert.Equal(t, int64(0), countContents(t, env, 1))
}

func TestGenerateImageFailureChargesTextOnly(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	svc := newContentService(env, &fakeText{text: "t"}, &fakeImage{err: failure(gateway.ContentBlocked)})

	params := launchParams
	params.GenerateImage = true
	res, err := svc.Generate(context.Background(), 1, params)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Charged)
	assert.Equal(t, gateway.ContentBlocked, res.ImageFailure)
	assert.Nil(t, res.Content.GeneratedImageURL)
	assert.Equal(t, int64(9), env.balance(t, 1))
}

func TestGenerateSurvivesCanceledCaller(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)

	ctx, cancel := context.WithCancel(context.Background())
	text := &cancelingText{cancel: cancel}
	svc := newContentService(env, text, &fakeImage{})

	res, err := svc.Generate(ctx, 1, launchParams)
	require.NoError(t, err)
	assert.NotZero(t, res.Content.ID)
	assert.Equal(t, int64(9), env.balance(t, 1))
}

// cancelingText cancels the caller's context as soon as generation is done,
// like a client that disconnects while waiting.
type cancelingText struct {
	cancel context.CancelFunc
}

func (c *cancelingText) GenerateText(ctx context.Context, prompt string) (string, error) {
	c.cancel()
	return "generated", nil
}

type failingContents struct {
	repository.ContentRepository
	err error
}

func (f *failingContents) Create(ctx context.Context, tx *sql.Tx, c *models.Content) (bool, error) {
	return false, f.err
}

func TestGeneratePersistFailureIsQueuedAndReplayedOnce(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	broken := NewContentService(env.db, env.ledger, &failingContents{ContentRepository: env.contents, err: errors.New("disk I/O error")},
		&fakeText{text: "keep me"}, &fakeImage{}, env.compensator, testCosts, env.metrics, env.log)

	_, err := broken.Generate(context.Background(), 1, launchParams)
	require.ErrorIs(t, err, apperror.ErrPersistenceQueued)
	assert.Equal(t, int64(10), env.balance(t, 1), "debit must roll back with the failed insert")
	require.Len(t, env.compensator.persists, 1)

	pending := env.compensator.persists[0]
	assert.Equal(t, "keep me", pending.GeneratedText)
	assert.Equal(t, int64(1), pending.Cost)

	svc := newContentService(env, &fakeText{}, &fakeImage{})
	require.NoError(t, svc.PersistPending(context.Background(), pending))
	require.NoError(t, svc.PersistPending(context.Background(), pending))

	assert.Equal(t, int64(1), countContents(t, env, 1))
	assert.Equal(t, int64(9), env.balance(t, 1))
}

func TestGeneratePersistFailureWithoutQueue(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	env.compensator.err = errors.New("redis down")
	svc := NewContentService(env.db, env.ledger, &failingContents{ContentRepository: env.contents, err: errors.New("disk I/O error")},
		&fakeText{text: "t"}, &fakeImage{}, env.compensator, testCosts, env.metrics, env.log)

	_, err := svc.Generate(context.Background(), 1, launchParams)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrPersistenceQueued))
	assert.Equal(t, int64(10), env.balance(t, 1))
}

func TestPersistPendingKeepsContentWhenBalanceGone(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 0)
	svc := newContentService(env, &fakeText{}, &fakeImage{})

	err := svc.PersistPending(context.Background(), PendingContent{
		OperationID:   "generate_late",
		UserID:        1,
		Title:         "t",
		InputParams:   []byte(`{}`),
		GeneratedText: "g",
		Cost:          4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countContents(t, env, 1))
	assert.Equal(t, int64(0), env.balance(t, 1))
}

// racingLedger reports a sufficient balance but loses the debit, as when a
// concurrent request spends the credits in between.
type racingLedger struct {
	CreditLedger
}

func (racingLedger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return 10, nil
}

func (racingLedger) TryDebit(ctx context.Context, tx *sql.Tx, userID, amount int64) error {
	return apperror.InsufficientCredits(0, amount)
}

func TestGenerateLostDebitRace(t *testing.T) {
	env := newTestEnv(t)
	svc := NewContentService(env.db, racingLedger{}, env.contents, &fakeText{text: "t"}, &fakeImage{}, env.compensator, testCosts, env.metrics, env.log)

	_, err := svc.Generate(context.Background(), 1, launchParams)
	require.ErrorIs(t, err, apperror.ErrPersistenceConflict)
	assert.Equal(t, int64(0), countContents(t, env, 1))
	assert.Empty(t, env.compensator.persists)
}

func TestPersistRollsBackDebitWhenInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	credits := repository.NewCreditRepository(db)
	env := &testEnv{metrics: metrics.New(), compensator: &fakeCompensator{}, log: zap.NewNop()}
	ledger := NewCreditLedger(db, credits, 10, env.log)
	svc := NewContentService(db, ledger, repository.NewContentRepository(db), &fakeText{text: "t"}, &fakeImage{}, env.compensator, testCosts, env.metrics, env.log)

	mock.ExpectExec("INSERT INTO credits").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, user_id, balance, last_updated FROM credits").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "last_updated"}).AddRow(1, 1, 10, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE credits SET balance = balance -").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO contents").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = svc.Generate(context.Background(), 1, launchParams)
	require.ErrorIs(t, err, apperror.ErrPersistenceQueued)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, env.compensator.persists, 1)
}

func TestContentGetAndList(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, 1, 10)
	svc := newContentService(env, &fakeText{text: "t"}, &fakeImage{})

	res, err := svc.Generate(context.Background(), 1, launchParams)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), 1, res.Content.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Content.ID, got.ID)

	_, err = svc.Get(context.Background(), 2, res.Content.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	page, err := svc.List(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
	assert.Len(t, page.Contents, 1)

	empty, err := svc.List(context.Background(), 9, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Contents)
	assert.Empty(t, empty.Contents)
}
