package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/database"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/metrics"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCosts = config.Costs{Text: 1, Image: 3, Post: 1}

type testEnv struct {
	db          *sql.DB
	credits     repository.CreditRepository
	contents    repository.ContentRepository
	connections repository.SocialConnectionRepository
	txns        repository.TransactionRepository
	ledger      CreditLedger
	metrics     *metrics.Metrics
	compensator *fakeCompensator
	log         *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cipher, err := utils.NewTokenCipher("service-test-key")
	require.NoError(t, err)

	log := zap.NewNop()
	credits := repository.NewCreditRepository(db)
	return &testEnv{
		db:          db,
		credits:     credits,
		contents:    repository.NewContentRepository(db),
		connections: repository.NewSocialConnectionRepository(db, cipher),
		txns:        repository.NewTransactionRepository(db),
		ledger:      NewCreditLedger(db, credits, 10, log),
		metrics:     metrics.New(),
		compensator: &fakeCompensator{},
		log:         log,
	}
}

// setBalance creates the ledger entry with exactly balance credits.
func (e *testEnv) setBalance(t *testing.T, userID, balance int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.credits.Ensure(ctx, nil, userID, 0))
	_, err := e.credits.Add(ctx, nil, userID, balance)
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	c, err := e.credits.GetByUserID(context.Background(), nil, userID)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c.Balance
}

type fakeText struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeText) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

type fakeImage struct {
	url   string
	err   error
	calls int
}

func (f *fakeImage) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.url, f.err
}

type fakePoster struct {
	mu       sync.Mutex
	results  []error
	requests []gateway.PostRequest
}

func (f *fakePoster) Post(ctx context.Context, req gateway.PostRequest) (*gateway.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	var err error
	if i := len(f.requests) - 1; i < len(f.results) {
		err = f.results[i]
	}
	if err != nil {
		return nil, err
	}
	return &gateway.PostResult{ExternalID: "ext-1"}, nil
}

type fakeCompensator struct {
	mu       sync.Mutex
	persists []PendingContent
	refunds  []PendingRefund
	err      error
}

func (f *fakeCompensator) EnqueuePersist(ctx context.Context, p PendingContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.persists = append(f.persists, p)
	return nil
}

func (f *fakeCompensator) EnqueueRefund(ctx context.Context, r PendingRefund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.refunds = append(f.refunds, r)
	return nil
}

type memoryVerifiers struct {
	m map[string]string
}

func (v *memoryVerifiers) SaveVerifier(ctx context.Context, state, verifier string) error {
	if v.m == nil {
		v.m = map[string]string{}
	}
	v.m[state] = verifier
	return nil
}

func (v *memoryVerifiers) TakeVerifier(ctx context.Context, state string) (string, error) {
	verifier, ok := v.m[state]
	if !ok {
		return "", errors.New("not found")
	}
	delete(v.m, state)
	return verifier, nil
}

func failure(kind gateway.Kind) error {
	return &gateway.Failure{Kind: kind, Provider: "test", Err: errors.New(string(kind))}
}
