package contract

import (
	"context"

	"support-chat-be/internal/entity"

	"github.com/google/uuid"
)

type WorkspaceQuotaRepository interface {
	// FindByWorkspaceId returns nil (no error) when the workspace has no
	// explicit quota row; the caller falls back to config defaults.
	FindByWorkspaceId(ctx context.Context, workspaceId uuid.UUID) (*entity.WorkspaceQuota, error)
	Upsert(ctx context.Context, quota *entity.WorkspaceQuota) error
}
