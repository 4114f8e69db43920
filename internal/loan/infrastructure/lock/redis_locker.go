// Package lock implements the per-loan mutex on redis SetNX with owner
// tokens, so an expired lock taken over by another process is never released
// by the previous holder.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/pkg/cache"
	"github.com/wyfcoding/loanservicing/pkg/logger"
)

const retryInterval = 50 * time.Millisecond

// RedisLocker acquires loan locks with a bounded wait.
type RedisLocker struct {
	cache       *cache.RedisCache
	waitTimeout time.Duration
}

func NewRedisLocker(c *cache.RedisCache, waitTimeout time.Duration) *RedisLocker {
	return &RedisLocker{cache: c, waitTimeout: waitTimeout}
}

// Acquire takes the lock for loanID or returns ErrLoanLocked after the wait
// window. The returned release func is safe to call after the TTL expired.
func (l *RedisLocker) Acquire(ctx context.Context, loanID string, ttl time.Duration) (func(), error) {
	key := lockKey(loanID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.waitTimeout)

	for {
		ok, err := l.cache.SetNX(ctx, key, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire loan lock %s: %w", loanID, err)
		}
		if ok {
			release := func() {
				// The request context may already be done; the lock still has
				// to go away.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.cache.ReleaseIfOwned(releaseCtx, key, token); err != nil {
					logger.Warn(releaseCtx, "Failed to release loan lock", "loan_id", loanID, "error", err)
				}
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: loan %s", domain.ErrLoanLocked, loanID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func lockKey(loanID string) string {
	return fmt.Sprintf("loan:lock:%s", loanID)
}
