package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// ScoreRepository 评分台账访问接口
// 台账只提供写入与读取，不提供修改或删除
type ScoreRepository interface {
	CreateAIScore(ctx context.Context, s *model.AIScore) error
	GetAIScore(ctx context.Context, evaluationID string) (*model.AIScore, error)
	ListAIScores(ctx context.Context, evaluationIDs []string) ([]model.AIScore, error)

	CreateManualScore(ctx context.Context, s *model.ManualScore) error
	ListManualScores(ctx context.Context, evaluationID string) ([]model.ManualScore, error)
	ListManualScoresByEvaluations(ctx context.Context, evaluationIDs []string) ([]model.ManualScore, error)

	CreateFinalScore(ctx context.Context, s *model.FinalScore) error
	GetFinalScore(ctx context.Context, evaluationID string) (*model.FinalScore, error)
	ListFinalScores(ctx context.Context, evaluationIDs []string) ([]model.FinalScore, error)
}

type scoreRepo struct {
	db *gorm.DB
}

// NewScoreRepo 创建 ScoreRepository 实例
func NewScoreRepo(db *gorm.DB) ScoreRepository {
	return &scoreRepo{db: db}
}

// ── AI 评分 ──

func (r *scoreRepo) CreateAIScore(ctx context.Context, s *model.AIScore) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *scoreRepo) GetAIScore(ctx context.Context, evaluationID string) (*model.AIScore, error) {
	var s model.AIScore
	if err := r.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scoreRepo) ListAIScores(ctx context.Context, evaluationIDs []string) ([]model.AIScore, error) {
	var list []model.AIScore
	if len(evaluationIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("evaluation_id IN ?", evaluationIDs).Find(&list).Error
	return list, err
}

// ── 人工评分 ──

func (r *scoreRepo) CreateManualScore(ctx context.Context, s *model.ManualScore) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *scoreRepo) ListManualScores(ctx context.Context, evaluationID string) ([]model.ManualScore, error) {
	var list []model.ManualScore
	err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("submitted_at ASC").
		Find(&list).Error
	return list, err
}

func (r *scoreRepo) ListManualScoresByEvaluations(ctx context.Context, evaluationIDs []string) ([]model.ManualScore, error) {
	var list []model.ManualScore
	if len(evaluationIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("evaluation_id IN ?", evaluationIDs).
		Order("evaluation_id ASC, submitted_at ASC").
		Find(&list).Error
	return list, err
}

// ── 最终得分 ──

func (r *scoreRepo) CreateFinalScore(ctx context.Context, s *model.FinalScore) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *scoreRepo) GetFinalScore(ctx context.Context, evaluationID string) (*model.FinalScore, error) {
	var s model.FinalScore
	if err := r.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scoreRepo) ListFinalScores(ctx context.Context, evaluationIDs []string) ([]model.FinalScore, error) {
	var list []model.FinalScore
	if len(evaluationIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("evaluation_id IN ?", evaluationIDs).Find(&list).Error
	return list, err
}
