package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// OperationLogFilter 审计日志筛选条件
type OperationLogFilter struct {
	OperationType string
	OperatorID    string
	TargetID      string
	TargetType    string
	From          *time.Time
	To            *time.Time
}

// OperationLogRepository 审计日志访问接口（只追加）
type OperationLogRepository interface {
	Create(ctx context.Context, l *model.OperationLog) error
	List(ctx context.Context, f OperationLogFilter, offset, limit int) ([]model.OperationLog, int64, error)
	ListByTarget(ctx context.Context, targetType, targetID string) ([]model.OperationLog, error)
}

type operationLogRepo struct {
	db *gorm.DB
}

// NewOperationLogRepo 创建 OperationLogRepository 实例
func NewOperationLogRepo(db *gorm.DB) OperationLogRepository {
	return &operationLogRepo{db: db}
}

func (r *operationLogRepo) Create(ctx context.Context, l *model.OperationLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *operationLogRepo) List(ctx context.Context, f OperationLogFilter, offset, limit int) ([]model.OperationLog, int64, error) {
	var list []model.OperationLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.OperationLog{})
	if f.OperationType != "" {
		db = db.Where("operation_type = ?", f.OperationType)
	}
	if f.OperatorID != "" {
		db = db.Where("operator_id = ?", f.OperatorID)
	}
	if f.TargetID != "" {
		db = db.Where("target_id = ?", f.TargetID)
	}
	if f.TargetType != "" {
		db = db.Where("target_type = ?", f.TargetType)
	}
	if f.From != nil {
		db = db.Where("operated_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("operated_at <= ?", *f.To)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("operated_at DESC, id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *operationLogRepo) ListByTarget(ctx context.Context, targetType, targetID string) ([]model.OperationLog, error) {
	var list []model.OperationLog
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("operated_at ASC").
		Find(&list).Error
	return list, err
}
