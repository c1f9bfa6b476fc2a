package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/scoring"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// ScoringService 人工评分与最终得分接口
type ScoringService interface {
	// SubmitManual 评审人提交人工评分；每位评审人对同一评估至多一份
	SubmitManual(ctx context.Context, actor model.Actor, evaluationID string, req *dto.ManualScoreRequest) (*model.ManualScore, error)
	// Finalize 评估办确定最终得分；偏离加权均值超过 20% 时拒绝
	Finalize(ctx context.Context, actor model.Actor, evaluationID string, req *dto.FinalizeRequest) (*model.FinalScore, error)
	Summary(ctx context.Context, actor model.Actor, evaluationID string) (*dto.ScoreSummary, error)
}

type scoringService struct {
	repo   *repository.Repository
	lc     *lifecycle
	logger *zap.Logger
}

// NewScoringService 创建 ScoringService 实例
func NewScoringService(repo *repository.Repository, logger *zap.Logger) ScoringService {
	return &scoringService{repo: repo, lc: newLifecycle(repo, logger), logger: logger}
}

func (s *scoringService) SubmitManual(ctx context.Context, actor model.Actor, evaluationID string, req *dto.ManualScoreRequest) (*model.ManualScore, error) {
	weight, ok := scoring.WeightOf(actor.Role)
	if !ok {
		return nil, ErrNotReviewer
	}
	scores, err := indicatorScores(req.Scores)
	if err != nil {
		return nil, err
	}

	ms := &model.ManualScore{
		EvaluationID: evaluationID,
		ReviewerID:   actor.UserID,
		ReviewerName: actor.Name,
		ReviewerRole: actor.Role,
		Weight:       weight,
		Scores:       datatypes.NewJSONSlice(scores),
	}
	_, err = s.lc.run(ctx, actor, evaluationID, req.Version, model.OpManualScore,
		func(tx *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			if err := tx.Score.CreateManualScore(ctx, ms); err != nil {
				return change{}, err
			}
			return change{Details: map[string]interface{}{
				"manual_score_id": ms.ID,
				"weight":          ms.Weight,
				"total":           ms.Total(),
			}}, nil
		})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}
	return ms, nil
}

// indicatorScores 规范化指标键；同一指标重复出现时拒绝
func indicatorScores(in []dto.IndicatorScoreInput) ([]model.IndicatorScore, error) {
	out := make([]model.IndicatorScore, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, sc := range in {
		key := model.NormalizeIndicator(sc.Indicator)
		if !model.IsKnownIndicator(key) || seen[key] {
			return nil, ErrUnknownIndicator
		}
		seen[key] = true
		out = append(out, model.IndicatorScore{
			Indicator: key,
			Score:     sc.Score,
			Comment:   strings.TrimSpace(sc.Comment),
		})
	}
	return out, nil
}

func (s *scoringService) Finalize(ctx context.Context, actor model.Actor, evaluationID string, req *dto.FinalizeRequest) (*model.FinalScore, error) {
	fs := &model.FinalScore{
		EvaluationID: evaluationID,
		FinalScore:   req.FinalScore,
		Summary:      strings.TrimSpace(req.Summary),
		DeterminedBy: actor.UserID,
	}
	_, err := s.lc.run(ctx, actor, evaluationID, req.Version, model.OpFinalize,
		func(tx *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			manual, err := tx.Score.ListManualScores(ctx, e.ID)
			if err != nil {
				return change{}, err
			}
			mean, err := scoring.WeightedMean(manual)
			if err != nil {
				return change{}, err
			}
			if err := scoring.CheckFinalScore(fs.FinalScore, mean); err != nil {
				return change{}, err
			}
			if err := tx.Score.CreateFinalScore(ctx, fs); err != nil {
				return change{}, err
			}
			return change{Details: map[string]interface{}{
				"final_score_id": fs.ID,
				"final_score":    fs.FinalScore,
				"weighted_mean":  mean,
				"reviewers":      len(manual),
			}}, nil
		})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrFinalScoreExists
		}
		return nil, err
	}
	return fs, nil
}

func (s *scoringService) Summary(ctx context.Context, actor model.Actor, evaluationID string) (*dto.ScoreSummary, error) {
	e, err := s.lc.load(ctx, s.repo, actor, evaluationID, nil)
	if err != nil {
		return nil, err
	}
	out := &dto.ScoreSummary{EvaluationID: e.ID}
	if out.AIScore, err = optional(s.repo.Score.GetAIScore(ctx, e.ID)); err != nil {
		return nil, err
	}
	if out.ManualScores, err = s.repo.Score.ListManualScores(ctx, e.ID); err != nil {
		return nil, err
	}
	if out.FinalScore, err = optional(s.repo.Score.GetFinalScore(ctx, e.ID)); err != nil {
		return nil, err
	}
	if len(out.ManualScores) > 0 {
		mean, err := scoring.WeightedMean(out.ManualScores)
		if err != nil {
			return nil, err
		}
		lo, hi := scoring.AllowedRange(mean)
		out.WeightedMean, out.AllowedMin, out.AllowedMax = &mean, &lo, &hi
	}
	return out, nil
}
