package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMessage struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Content       string         `gorm:"type:text;not null"`
	Role          string         `gorm:"type:varchar(16);not null"`
	ChatSessionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	WorkspaceId   uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_workspace_created"`
	TokensUsed    int            `gorm:"default:0"` // LLM tokens consumed producing this message
	Confidence    string         `gorm:"type:varchar(8)"`
	Sources       datatypes.JSON `gorm:"type:jsonb"` // []MessageSource
	CreatedAt     time.Time      `gorm:"autoCreateTime;index:idx_chat_messages_workspace_created"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
