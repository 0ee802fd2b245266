package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePersistContent, q.HandlePersistContentTask)
	mux.HandleFunc(TaskTypeRefundCredit, q.HandleRefundCreditTask)
}

func (q *Queue) HandlePersistContentTask(ctx context.Context, task *asynq.Task) error {
	var payload service.PendingContent
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}

	if err := q.contents.PersistPending(ctx, payload); err != nil {
		q.log.Warn("queued content not persisted",
			zap.String("operation_id", payload.OperationID),
			zap.Int64("user_id", payload.UserID),
			zap.Error(err),
		)
		return err
	}

	q.log.Info("queued content persisted", zap.String("operation_id", payload.OperationID))
	return nil
}

func (q *Queue) HandleRefundCreditTask(ctx context.Context, task *asynq.Task) error {
	var payload service.PendingRefund
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}

	applied, err := q.ledger.Refund(ctx, payload.OperationID, payload.UserID, payload.Amount)
	if err != nil {
		q.log.Warn("queued refund not applied",
			zap.String("operation_id", payload.OperationID),
			zap.Int64("user_id", payload.UserID),
			zap.Error(err),
		)
		return err
	}

	q.log.Info("queued refund processed",
		zap.String("operation_id", payload.OperationID),
		zap.Int64("amount", payload.Amount),
		zap.Bool("applied", applied),
	)
	return nil
}
