package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceQuota holds per-workspace admission limits read from the durable
// store. A nil row means the config-file defaults apply. Negative limits
// mean unlimited.
type WorkspaceQuota struct {
	WorkspaceId       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestsPerMinute int
	DailyTokenLimit   int64
	MonthlyTokenLimit int64
	UpdatedAt         *time.Time
}
