package queue

import (
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"go.uber.org/zap"
)

// Queue processes compensation tasks that outlive the request which
// produced them.
type Queue struct {
	contents service.ContentService
	ledger   service.CreditLedger
	log      *zap.Logger
}

func NewQueue(
	contents service.ContentService,
	ledger service.CreditLedger,
	log *zap.Logger) *Queue {
	return &Queue{
		contents: contents,
		ledger:   ledger,
		log:      log.Named("queue"),
	}
}

const (
	TaskTypePersistContent = "content:persist"
	TaskTypeRefundCredit   = "credit:refund"
)
