package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func TestRetryAfterIn(t *testing.T) {
	now := time.Now()
	window := 60 * time.Second

	tests := []struct {
		name   string
		oldest time.Time
		want   time.Duration
	}{
		{
			name:   "oldest admission halfway through window",
			oldest: now.Add(-30 * time.Second),
			want:   30 * time.Second,
		},
		{
			name:   "oldest admission just happened",
			oldest: now,
			want:   60 * time.Second,
		},
		{
			name:   "oldest already outside window clamps to zero",
			oldest: now.Add(-90 * time.Second),
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := retryAfterIn(tt.oldest.UnixMilli(), now, window)
			// UnixMilli truncation can shave sub-millisecond noise
			assert.InDelta(t, tt.want.Seconds(), got.Seconds(), 0.01)
		})
	}
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, 1, ceilSeconds(0))
	assert.Equal(t, 1, ceilSeconds(200*time.Millisecond))
	assert.Equal(t, 2, ceilSeconds(1100*time.Millisecond))
	assert.Equal(t, 60, ceilSeconds(60*time.Second))
}

func TestWindowKey(t *testing.T) {
	assert.Equal(t, "ratelimit:ip:10.0.0.1", windowKey("ip:10.0.0.1"))
}

func TestCheckUnlimited(t *testing.T) {
	// Negative limit never touches Redis, so a nil-addr client is safe here
	l := NewLimiter(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), nopLogger{})
	res := l.Check(context.Background(), "ws-unlimited", -1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestCheckSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLimiter(rdb, nopLogger{})

	// Short real-time window: the cutoff score is computed from time.Now(),
	// so pruning works without touching miniredis's clock.
	window := 300 * time.Millisecond
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res := l.Check(ctx, "ws-1", 5, window)
		assert.True(t, res.Allowed, "call %d is within the limit", i)
		assert.Equal(t, 5-i, res.Remaining)
	}

	denied := l.Check(ctx, "ws-1", 5, window)
	assert.False(t, denied.Allowed, "6th call inside the window is denied")
	assert.Equal(t, 0, denied.Remaining)
	assert.Greater(t, denied.RetryAfter, 0)
	assert.True(t, denied.ResetAfter.After(time.Now().Add(-time.Second)))

	// A second immediate attempt stays denied: the rejected entry was
	// rolled back, not counted against the window.
	assert.False(t, l.Check(ctx, "ws-1", 5, window).Allowed)

	time.Sleep(window + 50*time.Millisecond)

	res := l.Check(ctx, "ws-1", 5, window)
	assert.True(t, res.Allowed, "admissions resume once the window has passed")
}

func TestCheckIdentifiersAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLimiter(rdb, nopLogger{})
	ctx := context.Background()

	assert.True(t, l.Check(ctx, "ws-1", 1, time.Minute).Allowed)
	assert.False(t, l.Check(ctx, "ws-1", 1, time.Minute).Allowed)

	assert.True(t, l.Check(ctx, "ws-2", 1, time.Minute).Allowed, "another identifier owns its own window")
}

func TestCheckFailsOpenWhenStoreUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	l := NewLimiter(rdb, nopLogger{})

	res := l.Check(context.Background(), "ws-1", 5, time.Minute)

	assert.True(t, res.Allowed, "store failure must fail open")
	assert.True(t, res.FailedOpen)
	assert.Equal(t, 5, res.Limit)
}
