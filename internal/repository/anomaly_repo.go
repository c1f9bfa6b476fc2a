package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// AnomalyRepository 异常数据访问接口
type AnomalyRepository interface {
	CreateBatch(ctx context.Context, list []model.Anomaly) error
	GetByID(ctx context.Context, id string) (*model.Anomaly, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]model.Anomaly, error)
	ListByEvaluations(ctx context.Context, evaluationIDs []string) ([]model.Anomaly, error)
	// MarkHandled 仅当异常仍为 pending 时写入处理信息，否则返回 ErrAlreadyHandled
	MarkHandled(ctx context.Context, a *model.Anomaly, by string, action model.AnomalyAction, note string) error
	CountPending(ctx context.Context, evaluationID string) (int64, error)
}

type anomalyRepo struct {
	db *gorm.DB
}

// NewAnomalyRepo 创建 AnomalyRepository 实例
func NewAnomalyRepo(db *gorm.DB) AnomalyRepository {
	return &anomalyRepo{db: db}
}

func (r *anomalyRepo) CreateBatch(ctx context.Context, list []model.Anomaly) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&list).Error
}

func (r *anomalyRepo) GetByID(ctx context.Context, id string) (*model.Anomaly, error) {
	var a model.Anomaly
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *anomalyRepo) ListByEvaluation(ctx context.Context, evaluationID string) ([]model.Anomaly, error) {
	var list []model.Anomaly
	err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("created_at ASC, indicator ASC").
		Find(&list).Error
	return list, err
}

func (r *anomalyRepo) ListByEvaluations(ctx context.Context, evaluationIDs []string) ([]model.Anomaly, error) {
	var list []model.Anomaly
	if len(evaluationIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("evaluation_id IN ?", evaluationIDs).
		Order("evaluation_id ASC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *anomalyRepo) MarkHandled(ctx context.Context, a *model.Anomaly, by string, action model.AnomalyAction, note string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Anomaly{}).
		Where("id = ? AND status = ?", a.ID, model.AnomalyPending).
		Updates(map[string]interface{}{
			"status":         model.AnomalyHandled,
			"handled_by":     by,
			"handled_action": action,
			"handled_at":     now,
			"handled_note":   note,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.ErrAlreadyHandled, "异常已被处理")
	}

	a.Status = model.AnomalyHandled
	a.HandledBy = &by
	a.HandledAction = &action
	a.HandledAt = &now
	a.HandledNote = note
	return nil
}

func (r *anomalyRepo) CountPending(ctx context.Context, evaluationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Anomaly{}).
		Where("evaluation_id = ? AND status = ?", evaluationID, model.AnomalyPending).
		Count(&n).Error
	return n, err
}
