package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/insight"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
)

// InsightService 洞察摘要接口
type InsightService interface {
	Get(ctx context.Context, actor model.Actor, evaluationID string) (*model.InsightSummary, error)
	// Regenerate 按当前评分重新生成并原地覆盖
	Regenerate(ctx context.Context, actor model.Actor, evaluationID string) (*model.InsightSummary, error)
}

type insightService struct {
	repo   *repository.Repository
	lc     *lifecycle
	logger *zap.Logger
}

// NewInsightService 创建 InsightService 实例
func NewInsightService(repo *repository.Repository, logger *zap.Logger) InsightService {
	return &insightService{repo: repo, lc: newLifecycle(repo, logger), logger: logger}
}

func (s *insightService) Get(ctx context.Context, actor model.Actor, evaluationID string) (*model.InsightSummary, error) {
	if _, err := s.lc.load(ctx, s.repo, actor, evaluationID, nil); err != nil {
		return nil, err
	}
	in, err := s.repo.Insight.GetByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, notFound(err, ErrInsightNotFound)
	}
	return in, nil
}

func (s *insightService) Regenerate(ctx context.Context, actor model.Actor, evaluationID string) (*model.InsightSummary, error) {
	if !actor.Can(model.CapPublish) {
		return nil, ErrNoCapability
	}
	var out *model.InsightSummary
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, err := s.lc.load(ctx, tx, actor, evaluationID, nil)
		if err != nil {
			return err
		}
		if out, err = generateInsight(ctx, tx, e.ID); err != nil {
			return err
		}
		return appendLog(ctx, tx, actor, model.OpRegenerateInsight, model.TargetEvaluation, e.ID, map[string]interface{}{
			"insight_id":   out.ID,
			"generated_at": out.GeneratedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// generateInsight 由最终得分与各指标平均分生成摘要并写入；须已有最终得分
func generateInsight(ctx context.Context, tx *repository.Repository, evaluationID string) (*model.InsightSummary, error) {
	fs, err := optional(tx.Score.GetFinalScore(ctx, evaluationID))
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, ErrMissingFinalScore
	}
	ai, err := optional(tx.Score.GetAIScore(ctx, evaluationID))
	if err != nil {
		return nil, err
	}
	manual, err := tx.Score.ListManualScores(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	summary := &model.InsightSummary{
		EvaluationID: evaluationID,
		Summary:      insight.Generate(fs.FinalScore, insight.Averages(ai, manual)),
		GeneratedAt:  time.Now().UTC(),
	}
	if err := tx.Insight.Upsert(ctx, summary); err != nil {
		return nil, err
	}
	// 覆盖写入时保留原主键，回读以返回实际记录
	return tx.Insight.GetByEvaluation(ctx, evaluationID)
}
