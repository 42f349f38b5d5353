package migrator

import (
	"context"
	"fmt"

	"github.com/probelab/polymigrate/logger"
)

func lockKey(sourceID string) string {
	return fmt.Sprintf("migration_lock_%s", sourceID)
}

// acquireRunLock takes the per-problem migration lock. The TTL bounds
// how long a crashed run can block its successor. Returns a release
// func on success.
func (s *Srvc) acquireRunLock(ctx context.Context, sourceID string) (func(), error) {
	key := lockKey(sourceID)
	ok, err := s.rdb.SetNX(ctx, key, "1", s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !ok {
		return nil, newErrMigrationInFlight(sourceID)
	}
	release := func() {
		// Release runs on the way out even when ctx is already done.
		if err := s.rdb.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			logger.FromContext(ctx).Warn("failed to release migration lock",
				"key", key, "error", err)
		}
	}
	return release, nil
}
