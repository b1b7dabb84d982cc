package dto

import (
	"fmt"
	"time"
)

// --- Admission Denial Error Types ---
// These are the only pipeline errors surfaced to the caller as a rejected
// request. Everything else degrades into a best-effort answer.

// RateLimitExceededError carries sliding-window state for the 429 payload.
type RateLimitExceededError struct {
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	RetryAfter int       `json:"retry_after_seconds"`
	ResetAfter time.Time `json:"reset_after"`
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests allowed, retry after %ds", e.Limit, e.RetryAfter)
}

// BudgetExceededError carries both period counters so clients can tell a
// daily exhaustion from a monthly one.
type BudgetExceededError struct {
	DailyLimit       int64     `json:"daily_limit"`
	DailyUsed        int64     `json:"daily_used"`
	DailyRemaining   int64     `json:"daily_remaining"`
	MonthlyLimit     int64     `json:"monthly_limit"`
	MonthlyUsed      int64     `json:"monthly_used"`
	MonthlyRemaining int64     `json:"monthly_remaining"`
	ResetAfter       time.Time `json:"reset_after"`
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("token budget exceeded: daily %d/%d, monthly %d/%d",
		e.DailyUsed, e.DailyLimit, e.MonthlyUsed, e.MonthlyLimit)
}
