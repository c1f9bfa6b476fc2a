package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// InsightRepository 洞察摘要访问接口
type InsightRepository interface {
	// Upsert 以 evaluation_id 为键写入或覆盖
	Upsert(ctx context.Context, s *model.InsightSummary) error
	GetByEvaluation(ctx context.Context, evaluationID string) (*model.InsightSummary, error)
}

type insightRepo struct {
	db *gorm.DB
}

// NewInsightRepo 创建 InsightRepository 实例
func NewInsightRepo(db *gorm.DB) InsightRepository {
	return &insightRepo{db: db}
}

func (r *insightRepo) Upsert(ctx context.Context, s *model.InsightSummary) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "evaluation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "generated_at"}),
		}).
		Create(s).Error
}

func (r *insightRepo) GetByEvaluation(ctx context.Context, evaluationID string) (*model.InsightSummary, error) {
	var s model.InsightSummary
	if err := r.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
