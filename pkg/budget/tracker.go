package budget

import (
	"context"
	"fmt"
	"time"

	"support-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UsageSource recomputes period consumption from persisted interaction
// records when the Redis counter is cold.
type UsageSource interface {
	SumTokensUsedSince(ctx context.Context, workspaceId uuid.UUID, since time.Time) (int64, error)
}

// Tracker accounts LLM token consumption per workspace across two
// independent periods (calendar day, calendar month). Counters live in Redis
// with expiry past the period boundary; the durable store is the source of
// truth on cache miss.
//
// Enforcement is deliberately soft: Check and Consume are separate calls, so
// a concurrent burst can briefly overshoot the limit. That is an accepted
// availability-over-strictness tradeoff, not a bug.
type Tracker struct {
	rdb     *redis.Client
	usage   UsageSource
	logger  logger.ILogger
	timeout time.Duration
}

type CheckResult struct {
	WithinBudget     bool
	DailyLimit       int64
	DailyUsed        int64
	DailyRemaining   int64
	MonthlyLimit     int64
	MonthlyUsed      int64
	MonthlyRemaining int64
	ResetAfter       time.Time // next daily boundary
	FailedOpen       bool
}

const (
	// TTLs overshoot the period length so a skewed clock cannot expire a
	// live counter; the period key itself provides correctness.
	dailyCounterTTL   = 48 * time.Hour
	monthlyCounterTTL = 35 * 24 * time.Hour
)

func NewTracker(rdb *redis.Client, usage UsageSource, log logger.ILogger) *Tracker {
	return &Tracker{
		rdb:     rdb,
		usage:   usage,
		logger:  log,
		timeout: 2 * time.Second,
	}
}

// Check reports whether the workspace can spend requestedTokens without
// crossing either period limit. Negative limits mean unlimited.
func (t *Tracker) Check(ctx context.Context, workspaceId uuid.UUID, requestedTokens int64, dailyLimit, monthlyLimit int64) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	now := time.Now()

	dailyUsed, dailyErr := t.periodUsage(ctx, workspaceId, dailyKey(workspaceId, now), dayStart(now), dailyCounterTTL)
	monthlyUsed, monthlyErr := t.periodUsage(ctx, workspaceId, monthlyKey(workspaceId, now), monthStart(now), monthlyCounterTTL)

	if dailyErr != nil || monthlyErr != nil {
		t.logger.Warn("BudgetTracker", "Counter store unreachable, failing open", map[string]interface{}{
			"workspace_id": workspaceId.String(),
		})
		return CheckResult{
			WithinBudget: true,
			DailyLimit:   dailyLimit,
			MonthlyLimit: monthlyLimit,
			ResetAfter:   nextDayStart(now),
			FailedOpen:   true,
		}
	}

	res := CheckResult{
		DailyLimit:       dailyLimit,
		DailyUsed:        dailyUsed,
		DailyRemaining:   remaining(dailyLimit, dailyUsed),
		MonthlyLimit:     monthlyLimit,
		MonthlyUsed:      monthlyUsed,
		MonthlyRemaining: remaining(monthlyLimit, monthlyUsed),
		ResetAfter:       nextDayStart(now),
	}

	res.WithinBudget = withinLimit(dailyLimit, dailyUsed, requestedTokens) &&
		withinLimit(monthlyLimit, monthlyUsed, requestedTokens)

	return res
}

// Consume records actual usage after a response was generated. Failures are
// logged and reported but never block the caller - the answer has already
// been produced.
func (t *Tracker) Consume(ctx context.Context, workspaceId uuid.UUID, tokensUsed int64) error {
	if tokensUsed <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	now := time.Now()

	pipe := t.rdb.TxPipeline()
	dKey := dailyKey(workspaceId, now)
	mKey := monthlyKey(workspaceId, now)
	pipe.IncrBy(ctx, dKey, tokensUsed)
	pipe.Expire(ctx, dKey, dailyCounterTTL)
	pipe.IncrBy(ctx, mKey, tokensUsed)
	pipe.Expire(ctx, mKey, monthlyCounterTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.Error("BudgetTracker", "Failed to record token usage", map[string]interface{}{
			"workspace_id": workspaceId.String(),
			"tokens":       tokensUsed,
			"error":        err.Error(),
		})
		return err
	}
	return nil
}

// periodUsage reads the running counter, rebuilding it from the durable
// store when the key is cold.
func (t *Tracker) periodUsage(ctx context.Context, workspaceId uuid.UUID, key string, periodStart time.Time, ttl time.Duration) (int64, error) {
	val, err := t.rdb.Get(ctx, key).Int64()
	if err == nil {
		return val, nil
	}
	if err != redis.Nil {
		return 0, err
	}

	// Cold counter: recompute from persisted messages for the period
	recomputed, err := t.usage.SumTokensUsedSince(ctx, workspaceId, periodStart)
	if err != nil {
		t.logger.Warn("BudgetTracker", "Usage recompute failed, assuming zero", map[string]interface{}{
			"workspace_id": workspaceId.String(),
			"error":        err.Error(),
		})
		recomputed = 0
	}

	// SetNX so a concurrent Consume's increment is not clobbered
	if err := t.rdb.SetNX(ctx, key, recomputed, ttl).Err(); err != nil {
		return recomputed, err
	}
	return recomputed, nil
}

func withinLimit(limit, used, requested int64) bool {
	if limit < 0 {
		return true
	}
	return used+requested <= limit
}

func remaining(limit, used int64) int64 {
	if limit < 0 {
		return -1
	}
	r := limit - used
	if r < 0 {
		r = 0
	}
	return r
}

func dailyKey(workspaceId uuid.UUID, now time.Time) string {
	return fmt.Sprintf("budget:%s:day:%s", workspaceId, now.Format("2006-01-02"))
}

func monthlyKey(workspaceId uuid.UUID, now time.Time) string {
	return fmt.Sprintf("budget:%s:month:%s", workspaceId, now.Format("2006-01"))
}

func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func nextDayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
