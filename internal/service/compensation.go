package service

import (
	"context"
	"encoding/json"
)

// PendingContent is a generated result whose persistence must be retried
// after the request that produced it has returned.
type PendingContent struct {
	OperationID       string          `json:"operation_id"`
	UserID            int64           `json:"user_id"`
	Title             string          `json:"title"`
	InputParams       json.RawMessage `json:"input_params"`
	GeneratedText     string          `json:"generated_text"`
	GeneratedImageURL *string         `json:"generated_image_url,omitempty"`
	Cost              int64           `json:"cost"`
}

type PendingRefund struct {
	OperationID string `json:"operation_id"`
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
}

// Compensator hands work that must not be lost to a durable queue.
type Compensator interface {
	EnqueuePersist(ctx context.Context, p PendingContent) error
	EnqueueRefund(ctx context.Context, r PendingRefund) error
}
