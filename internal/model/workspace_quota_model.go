package model

import (
	"time"

	"github.com/google/uuid"
)

type WorkspaceQuota struct {
	WorkspaceId       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestsPerMinute int       `gorm:"default:0"` // 0 = use config default, <0 = unlimited
	DailyTokenLimit   int64     `gorm:"default:0"`
	MonthlyTokenLimit int64     `gorm:"default:0"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (WorkspaceQuota) TableName() string {
	return "workspace_quotas"
}
