package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// AITaskRepository AI 评分任务访问接口
type AITaskRepository interface {
	Create(ctx context.Context, t *model.AIScoringTask) error
	GetByID(ctx context.Context, id string) (*model.AIScoringTask, error)
	Update(ctx context.Context, t *model.AIScoringTask) error
	ListByEvaluation(ctx context.Context, evaluationID string) ([]model.AIScoringTask, error)
	// CountActive 统计评估下仍处于 pending / running 的任务
	CountActive(ctx context.Context, evaluationID string) (int64, error)
}

type aiTaskRepo struct {
	db *gorm.DB
}

// NewAITaskRepo 创建 AITaskRepository 实例
func NewAITaskRepo(db *gorm.DB) AITaskRepository {
	return &aiTaskRepo{db: db}
}

func (r *aiTaskRepo) Create(ctx context.Context, t *model.AIScoringTask) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *aiTaskRepo) GetByID(ctx context.Context, id string) (*model.AIScoringTask, error) {
	var t model.AIScoringTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *aiTaskRepo) Update(ctx context.Context, t *model.AIScoringTask) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *aiTaskRepo) ListByEvaluation(ctx context.Context, evaluationID string) ([]model.AIScoringTask, error) {
	var list []model.AIScoringTask
	err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *aiTaskRepo) CountActive(ctx context.Context, evaluationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.AIScoringTask{}).
		Where("evaluation_id = ? AND status IN ?", evaluationID, []model.AITaskStatus{model.AITaskPending, model.AITaskRunning}).
		Count(&n).Error
	return n, err
}
