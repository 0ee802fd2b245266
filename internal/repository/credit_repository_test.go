package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewCreditRepository(newTestDB(t))

	require.NoError(t, r.Ensure(ctx, nil, 1, 10))
	_, err := r.Add(ctx, nil, 1, 5)
	require.NoError(t, err)
	require.NoError(t, r.Ensure(ctx, nil, 1, 10))

	c, err := r.GetByUserID(ctx, nil, 1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(15), c.Balance)
	assert.False(t, c.LastUpdated.IsZero())
}

func TestCreditGetMissing(t *testing.T) {
	r := NewCreditRepository(newTestDB(t))
	c, err := r.GetByUserID(context.Background(), nil, 99)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreditTryDebit(t *testing.T) {
	ctx := context.Background()
	r := NewCreditRepository(newTestDB(t))
	require.NoError(t, r.Ensure(ctx, nil, 1, 4))

	ok, err := r.TryDebit(ctx, nil, 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.TryDebit(ctx, nil, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok, "debit beyond balance must be rejected")

	c, _ := r.GetByUserID(ctx, nil, 1)
	assert.Equal(t, int64(1), c.Balance)

	ok, err = r.TryDebit(ctx, nil, 404, 1)
	require.NoError(t, err)
	assert.False(t, ok, "debit without a ledger entry must be rejected")
}

func TestCreditConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	r := NewCreditRepository(newTestDB(t))
	require.NoError(t, r.Ensure(ctx, nil, 7, 10))

	const workers = 25
	var wg sync.WaitGroup
	var succeeded int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.TryDebit(ctx, nil, 7, 3)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	c, err := r.GetByUserID(ctx, nil, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), succeeded)
	assert.Equal(t, int64(1), c.Balance)
	assert.GreaterOrEqual(t, c.Balance, int64(0))
}

func TestCreditRecordRefundOnce(t *testing.T) {
	ctx := context.Background()
	r := NewCreditRepository(newTestDB(t))

	refund := &models.CreditRefund{OperationID: "op-1", UserID: 1, Amount: 1}
	first, err := r.RecordRefund(ctx, nil, refund)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := r.RecordRefund(ctx, nil, refund)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestCreditTransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewCreditRepository(db)
	require.NoError(t, r.Ensure(ctx, nil, 1, 10))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	ok, err := r.TryDebit(ctx, tx, 1, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, tx.Rollback())

	c, _ := r.GetByUserID(ctx, nil, 1)
	assert.Equal(t, int64(10), c.Balance)
}
