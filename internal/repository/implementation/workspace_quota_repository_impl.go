package implementation

import (
	"context"
	"errors"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/model"
	"support-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkspaceQuotaRepositoryImpl struct {
	db *gorm.DB
}

func NewWorkspaceQuotaRepository(db *gorm.DB) contract.WorkspaceQuotaRepository {
	return &WorkspaceQuotaRepositoryImpl{db: db}
}

func (r *WorkspaceQuotaRepositoryImpl) FindByWorkspaceId(ctx context.Context, workspaceId uuid.UUID) (*entity.WorkspaceQuota, error) {
	var m model.WorkspaceQuota
	err := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	updatedAt := m.UpdatedAt
	return &entity.WorkspaceQuota{
		WorkspaceId:       m.WorkspaceId,
		RequestsPerMinute: m.RequestsPerMinute,
		DailyTokenLimit:   m.DailyTokenLimit,
		MonthlyTokenLimit: m.MonthlyTokenLimit,
		UpdatedAt:         &updatedAt,
	}, nil
}

func (r *WorkspaceQuotaRepositoryImpl) Upsert(ctx context.Context, quota *entity.WorkspaceQuota) error {
	m := model.WorkspaceQuota{
		WorkspaceId:       quota.WorkspaceId,
		RequestsPerMinute: quota.RequestsPerMinute,
		DailyTokenLimit:   quota.DailyTokenLimit,
		MonthlyTokenLimit: quota.MonthlyTokenLimit,
		UpdatedAt:         time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		UpdateAll: true,
	}).Create(&m).Error
}
