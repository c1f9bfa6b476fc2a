package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// EvaluationFilter 评估列表筛选条件
type EvaluationFilter struct {
	TeachingOfficeID string
	Year             int
	Status           model.EvaluationStatus
}

// EvaluationRepository 评估数据访问接口
type EvaluationRepository interface {
	Create(ctx context.Context, e *model.Evaluation) error
	GetByID(ctx context.Context, id string) (*model.Evaluation, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Evaluation, error)
	GetByOfficeYear(ctx context.Context, teachingOfficeID string, year int) (*model.Evaluation, error)
	List(ctx context.Context, f EvaluationFilter, offset, limit int) ([]model.Evaluation, int64, error)
	// Transition 条件更新：WHERE id AND status=<当前> AND version=<当前>，成功后 version+1
	Transition(ctx context.Context, e *model.Evaluation, to model.EvaluationStatus, fields map[string]interface{}) error
}

type evaluationRepo struct {
	db *gorm.DB
}

// NewEvaluationRepo 创建 EvaluationRepository 实例
func NewEvaluationRepo(db *gorm.DB) EvaluationRepository {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) Create(ctx context.Context, e *model.Evaluation) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *evaluationRepo) GetByID(ctx context.Context, id string) (*model.Evaluation, error) {
	var e model.Evaluation
	err := r.db.WithContext(ctx).
		Preload("TeachingOffice").
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *evaluationRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Evaluation, error) {
	var list []model.Evaluation
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("TeachingOffice").
		Where("id IN ?", ids).
		Find(&list).Error
	return list, err
}

func (r *evaluationRepo) GetByOfficeYear(ctx context.Context, teachingOfficeID string, year int) (*model.Evaluation, error) {
	var e model.Evaluation
	err := r.db.WithContext(ctx).
		Where("teaching_office_id = ? AND year = ?", teachingOfficeID, year).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *evaluationRepo) List(ctx context.Context, f EvaluationFilter, offset, limit int) ([]model.Evaluation, int64, error) {
	var list []model.Evaluation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Evaluation{})
	if f.TeachingOfficeID != "" {
		db = db.Where("teaching_office_id = ?", f.TeachingOfficeID)
	}
	if f.Year > 0 {
		db = db.Where("year = ?", f.Year)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("TeachingOffice").
		Order("year DESC, updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *evaluationRepo) Transition(ctx context.Context, e *model.Evaluation, to model.EvaluationStatus, fields map[string]interface{}) error {
	oldVersion := e.Version
	now := time.Now().UTC()

	updates := map[string]interface{}{}
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to
	updates["version"] = oldVersion + 1
	updates["updated_at"] = now

	result := r.db.WithContext(ctx).
		Model(&model.Evaluation{}).
		Where("id = ? AND status = ? AND version = ?", e.ID, e.Status, oldVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}

	e.Status = to
	e.Version = oldVersion + 1
	e.UpdatedAt = now
	return nil
}
