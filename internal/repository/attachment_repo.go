package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// AttachmentRepository 附件元数据访问接口
type AttachmentRepository interface {
	Create(ctx context.Context, a *model.Attachment) error
	GetByID(ctx context.Context, id string) (*model.Attachment, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]model.Attachment, error)
	ListByEvaluations(ctx context.Context, evaluationIDs []string) ([]model.Attachment, error)
	UpdateIndicator(ctx context.Context, id, indicator string, by model.ClassifiedBy) error
	Delete(ctx context.Context, id string) error
	ArchiveByEvaluations(ctx context.Context, evaluationIDs []string, at time.Time) (int64, error)
}

type attachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo 创建 AttachmentRepository 实例
func NewAttachmentRepo(db *gorm.DB) AttachmentRepository {
	return &attachmentRepo{db: db}
}

func (r *attachmentRepo) Create(ctx context.Context, a *model.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *attachmentRepo) GetByID(ctx context.Context, id string) (*model.Attachment, error) {
	var a model.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attachmentRepo) ListByEvaluation(ctx context.Context, evaluationID string) ([]model.Attachment, error) {
	var list []model.Attachment
	err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("uploaded_at ASC, file_name ASC").
		Find(&list).Error
	return list, err
}

func (r *attachmentRepo) ListByEvaluations(ctx context.Context, evaluationIDs []string) ([]model.Attachment, error) {
	var list []model.Attachment
	if len(evaluationIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("evaluation_id IN ?", evaluationIDs).
		Order("evaluation_id ASC, uploaded_at ASC").
		Find(&list).Error
	return list, err
}

func (r *attachmentRepo) UpdateIndicator(ctx context.Context, id, indicator string, by model.ClassifiedBy) error {
	result := r.db.WithContext(ctx).
		Model(&model.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"indicator":     indicator,
			"classified_by": by,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attachmentRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Attachment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ArchiveByEvaluations 归档指定评估的全部未归档附件，返回归档条数
func (r *attachmentRepo) ArchiveByEvaluations(ctx context.Context, evaluationIDs []string, at time.Time) (int64, error) {
	if len(evaluationIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Attachment{}).
		Where("evaluation_id IN ? AND is_archived = ?", evaluationIDs, false).
		Updates(map[string]interface{}{
			"is_archived": true,
			"archived_at": at,
		})
	return result.RowsAffected, result.Error
}
