package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobStateManager remembers which correlation ids an agent already scraped,
// so a re-delivered or auto-claimed task is skipped instead of hammering the
// supplier page a second time.
type JobStateManager interface {
	IsCompleted(ctx context.Context, correlationID string) (bool, error)
	MarkCompleted(ctx context.Context, correlationID string) error
}

const completedTTL = 24 * time.Hour

type redisJobStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisJobStateManager(redisClient *redis.Client) JobStateManager {
	return &redisJobStateManager{
		redisClient: redisClient,
		keyPrefix:   "elizabeth:details:done:",
	}
}

func (s *redisJobStateManager) IsCompleted(ctx context.Context, correlationID string) (bool, error) {
	key := s.keyPrefix + correlationID
	_, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to check job state for %s: %w", correlationID, err)
	}
	return true, nil
}

func (s *redisJobStateManager) MarkCompleted(ctx context.Context, correlationID string) error {
	key := s.keyPrefix + correlationID
	// Correlation ids are short-lived; an expiring marker is enough.
	if err := s.redisClient.Set(ctx, key, 1, completedTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", correlationID, err)
	}
	return nil
}
