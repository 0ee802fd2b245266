package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	maxRetry  = 10
	retention = 24 * time.Hour
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues compensation tasks. It satisfies service.Compensator.
type Client struct {
	client enqueuer
	log    *zap.Logger
}

func NewClient(client *asynq.Client, log *zap.Logger) *Client {
	return newClient(client, log)
}

func newClient(client enqueuer, log *zap.Logger) *Client {
	return &Client{client: client, log: log.Named("queue")}
}

var _ service.Compensator = (*Client)(nil)

func (c *Client) EnqueuePersist(ctx context.Context, p service.PendingContent) error {
	return c.enqueue(ctx, TaskTypePersistContent, p.OperationID, p)
}

func (c *Client) EnqueueRefund(ctx context.Context, r service.PendingRefund) error {
	return c.enqueue(ctx, TaskTypeRefundCredit, r.OperationID, r)
}

// The operation ID is the task ID, so asynq rejects a second enqueue of the
// same compensation while the first is still retained.
func (c *Client) enqueue(ctx context.Context, taskType, operationID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskType, body)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskType+":"+operationID),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(retention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.log.Info("task already enqueued", zap.String("type", taskType), zap.String("operation_id", operationID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	c.log.Info("task enqueued",
		zap.String("type", taskType),
		zap.String("operation_id", operationID),
		zap.String("queue", info.Queue),
	)
	return nil
}
