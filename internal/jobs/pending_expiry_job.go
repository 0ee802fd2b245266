package job

import (
	"context"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"go.uber.org/zap"
)

// PendingExpiryJob fails purchases whose webhook never arrived.
type PendingExpiryJob struct {
	billing service.BillingService
	log     *zap.Logger
}

func NewPendingExpiryJob(billing service.BillingService, log *zap.Logger) *PendingExpiryJob {
	return &PendingExpiryJob{billing: billing, log: log.Named("pending_expiry")}
}

func (j *PendingExpiryJob) Run() {
	if _, err := j.billing.ExpireStale(context.Background()); err != nil {
		j.log.Error("expire stale purchases", zap.Error(err))
	}
}
