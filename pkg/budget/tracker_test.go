package budget

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fixedUsage struct{ total int64 }

func (f fixedUsage) SumTokensUsedSince(ctx context.Context, workspaceId uuid.UUID, since time.Time) (int64, error) {
	return f.total, nil
}

func TestWithinLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int64
		used      int64
		requested int64
		want      bool
	}{
		{"well under limit", 10000, 100, 500, true},
		{"exactly at limit", 10000, 9400, 600, true},
		{"spec example: 9500 used, 600 requested, 10000 limit", 10000, 9500, 600, false},
		{"negative limit is unlimited", -1, 999999, 1000, true},
		{"zero limit denies everything", 0, 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withinLimit(tt.limit, tt.used, tt.requested))
		})
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, int64(500), remaining(10000, 9500))
	assert.Equal(t, int64(0), remaining(10000, 12000), "overshoot clamps to zero")
	assert.Equal(t, int64(-1), remaining(-1, 500), "unlimited reports -1")
}

func TestPeriodKeys(t *testing.T) {
	ws := uuid.MustParse("5a7e0a43-1111-2222-3333-444455556666")
	at := time.Date(2026, time.August, 30, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "budget:5a7e0a43-1111-2222-3333-444455556666:day:2026-08-30", dailyKey(ws, at))
	assert.Equal(t, "budget:5a7e0a43-1111-2222-3333-444455556666:month:2026-08", monthlyKey(ws, at))
}

func TestPeriodBoundaries(t *testing.T) {
	at := time.Date(2026, time.August, 30, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC), dayStart(at))
	assert.Equal(t, time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC), nextDayStart(at))
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), monthStart(at))

	// Month rollover
	lastOfMonth := time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), nextDayStart(lastOfMonth))
}

func TestCheckFailsOpenWhenStoreUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	tr := NewTracker(rdb, fixedUsage{total: 5000}, nopLogger{})

	res := tr.Check(context.Background(), uuid.New(), 600, 10000, 200000)

	assert.True(t, res.WithinBudget, "store failure must fail open")
	assert.True(t, res.FailedOpen)
	assert.Zero(t, res.DailyUsed)
}

func TestConsumeIgnoresNonPositive(t *testing.T) {
	// Zero tokens never touches Redis
	tr := NewTracker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), fixedUsage{}, nopLogger{})
	assert.NoError(t, tr.Consume(context.Background(), uuid.New(), 0))
}
