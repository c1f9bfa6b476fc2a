package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// ApprovalRepository 审定记录访问接口
type ApprovalRepository interface {
	Create(ctx context.Context, a *model.Approval) error
	List(ctx context.Context, offset, limit int) ([]model.Approval, int64, error)
	// LatestFor 返回覆盖指定评估的最近一条审定记录
	LatestFor(ctx context.Context, evaluationID string, decision model.ApprovalDecision) (*model.Approval, error)
}

type approvalRepo struct {
	db *gorm.DB
}

// NewApprovalRepo 创建 ApprovalRepository 实例
func NewApprovalRepo(db *gorm.DB) ApprovalRepository {
	return &approvalRepo{db: db}
}

func (r *approvalRepo) Create(ctx context.Context, a *model.Approval) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *approvalRepo) List(ctx context.Context, offset, limit int) ([]model.Approval, int64, error) {
	var list []model.Approval
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Approval{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("approved_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

// LatestFor evaluation_ids 为 JSON 数组，跨 PostgreSQL / SQLite 统一在内存中匹配
func (r *approvalRepo) LatestFor(ctx context.Context, evaluationID string, decision model.ApprovalDecision) (*model.Approval, error) {
	var list []model.Approval
	err := r.db.WithContext(ctx).
		Where("decision = ?", decision).
		Order("approved_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Covers(evaluationID) {
			return &list[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
