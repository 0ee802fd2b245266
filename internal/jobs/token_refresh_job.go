package job

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"go.uber.org/zap"
)

const (
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 10
)

type TokenRefreshJob struct {
	connections repository.SocialConnectionRepository
	social      service.SocialService
	log         *zap.Logger
}

func NewTokenRefreshJob(
	connections repository.SocialConnectionRepository,
	social service.SocialService,
	log *zap.Logger) *TokenRefreshJob {
	return &TokenRefreshJob{
		connections: connections,
		social:      social,
		log:         log.Named("token_refresh"),
	}
}

// Run is the cron entry point.
func (c *TokenRefreshJob) Run() {
	c.RefreshTokens(context.Background())
}

// RefreshTokens refreshes every connection whose access token expires within
// the next 30 minutes and reports how many succeeded.
func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) int {
	now := time.Now()
	conns, err := c.connections.ListExpiringBetween(ctx, now, now.Add(refreshWindow))
	if err != nil {
		c.log.Error("list expiring connections", zap.Error(err))
		return 0
	}

	var (
		wg        sync.WaitGroup
		refreshed int64
	)
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, conn := range conns {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(conn *models.SocialConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.social.RefreshConnection(ctx, conn); err != nil {
				c.log.Warn("unable to refresh tokens",
					zap.Int64("user_id", conn.UserID),
					zap.String("platform", conn.Platform),
					zap.Error(err),
				)
				return
			}
			atomic.AddInt64(&refreshed, 1)
		}(conn)
	}
	wg.Wait()

	if len(conns) > 0 {
		c.log.Info("token refresh finished", zap.Int("due", len(conns)), zap.Int64("refreshed", refreshed))
	}
	return int(refreshed)
}
