package ratelimit

import (
	"context"
	"strconv"
	"time"

	"support-chat-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Limiter is a Redis-backed sliding-window admission gate. Each identifier
// (client IP or workspace id) owns a sorted set of admission timestamps; the
// set is pruned to the trailing window on every check.
//
// Failure policy: if Redis is unreachable the limiter FAILS OPEN and admits.
// Availability wins over strict enforcement for this gate.
type Limiter struct {
	rdb     *redis.Client
	logger  logger.ILogger
	timeout time.Duration
}

// Result carries the window state for the caller's 429 payload.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int // seconds until the oldest admission leaves the window
	ResetAfter time.Time
	FailedOpen bool // admission granted only because the store was unreachable
}

func NewLimiter(rdb *redis.Client, log logger.ILogger) *Limiter {
	return &Limiter{
		rdb:     rdb,
		logger:  log,
		timeout: 2 * time.Second,
	}
}

// Check admits or denies one request for the identifier. The add-then-count
// sequence runs in a single pipeline, so two concurrent checks both see each
// other's entry and an allowed admission never pushes the window over limit.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int, window time.Duration) Result {
	if limit < 0 {
		// Negative limit means unlimited
		return Result{Allowed: true, Limit: limit, Remaining: -1}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	now := time.Now()
	key := windowKey(identifier)
	member := strconv.FormatInt(now.UnixNano(), 10)
	cutoff := now.Add(-window).UnixMilli()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, window) // bound memory: whole key dies after a quiet window

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("RateLimiter", "Redis unreachable, failing open", map[string]interface{}{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return Result{Allowed: true, Limit: limit, Remaining: limit, FailedOpen: true}
	}

	count := int(countCmd.Val()) // includes the entry we just added

	if count > limit {
		// Roll back our own entry and deny
		if err := l.rdb.ZRem(ctx, key, member).Err(); err != nil {
			l.logger.Warn("RateLimiter", "Failed to remove denied entry", map[string]interface{}{
				"identifier": identifier,
				"error":      err.Error(),
			})
		}

		retryAfter := window
		resetAfter := now.Add(window)
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			retryAfter = retryAfterIn(int64(oldest[0].Score), now, window)
			resetAfter = now.Add(retryAfter)
		}

		return Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: ceilSeconds(retryAfter),
			ResetAfter: resetAfter,
		}
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
	}
}

func windowKey(identifier string) string {
	return "ratelimit:" + identifier
}

// retryAfterIn computes how long until the oldest surviving admission falls
// out of the trailing window.
func retryAfterIn(oldestMillis int64, now time.Time, window time.Duration) time.Duration {
	oldest := time.UnixMilli(oldestMillis)
	wait := window - now.Sub(oldest)
	if wait < 0 {
		wait = 0
	}
	return wait
}

func ceilSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second > 0 {
		s++
	}
	if s < 1 {
		s = 1
	}
	return s
}
