package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/workflow"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// EvaluationService 评估记录业务接口
type EvaluationService interface {
	// CreateDraft 创建年度草稿；同年度已存在时返回已有记录
	CreateDraft(ctx context.Context, actor model.Actor, req *dto.CreateEvaluationRequest) (*model.Evaluation, error)
	SaveContent(ctx context.Context, actor model.Actor, id string, req *dto.SaveContentRequest) (*model.Evaluation, error)
	Submit(ctx context.Context, actor model.Actor, id string, expected *int) (*model.Evaluation, error)
	Unlock(ctx context.Context, actor model.Actor, id string, req *dto.UnlockRequest) (*model.Evaluation, error)
	Get(ctx context.Context, actor model.Actor, id string) (*dto.EvaluationDetail, error)
	List(ctx context.Context, actor model.Actor, req *dto.EvaluationListRequest) ([]model.Evaluation, int64, error)
	History(ctx context.Context, actor model.Actor, id string) ([]model.OperationLog, error)
	Transitions() []dto.TransitionRule
}

type evaluationService struct {
	repo   *repository.Repository
	lc     *lifecycle
	logger *zap.Logger
}

// NewEvaluationService 创建 EvaluationService 实例
func NewEvaluationService(repo *repository.Repository, logger *zap.Logger) EvaluationService {
	return &evaluationService{repo: repo, lc: newLifecycle(repo, logger), logger: logger}
}

// normalizeContent 解析、校验并按当前版本重新序列化
func normalizeContent(raw json.RawMessage) (datatypes.JSON, error) {
	c, err := model.ParseContent(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArgument, err.Error(), err)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (s *evaluationService) CreateDraft(ctx context.Context, actor model.Actor, req *dto.CreateEvaluationRequest) (*model.Evaluation, error) {
	if !actor.Can(model.CapEditEvaluation) {
		return nil, ErrNoCapability
	}
	if actor.TeachingOfficeID == "" {
		return nil, ErrNoOffice
	}

	existing, err := s.repo.Evaluation.GetByOfficeYear(ctx, actor.TeachingOfficeID, req.Year)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询年度评估失败", zap.Error(err))
		return nil, err
	}

	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	e := &model.Evaluation{
		TeachingOfficeID: actor.TeachingOfficeID,
		Year:             req.Year,
		Content:          content,
		Status:           model.StatusDraft,
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Evaluation.Create(ctx, e); err != nil {
			return err
		}
		return appendLog(ctx, tx, actor, model.OpCreateDraft, model.TargetEvaluation, e.ID, map[string]interface{}{
			"year":    e.Year,
			"to":      e.Status,
			"version": e.Version,
		})
	})
	if err != nil {
		// 并发创建同一年度：返回胜出的那条
		if pkgerrors.IsUniqueViolation(err) {
			if winner, gerr := s.repo.Evaluation.GetByOfficeYear(ctx, actor.TeachingOfficeID, req.Year); gerr == nil {
				return winner, nil
			}
			return nil, ErrEvaluationExists
		}
		s.logger.Error("创建评估草稿失败", zap.Error(err))
		return nil, err
	}
	s.lc.record(applied{Operation: model.OpCreateDraft, To: model.StatusDraft})
	return e, nil
}

func (s *evaluationService) SaveContent(ctx context.Context, actor model.Actor, id string, req *dto.SaveContentRequest) (*model.Evaluation, error) {
	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}
	return s.lc.run(ctx, actor, id, req.Version, model.OpSaveContent,
		func(_ *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			if !actor.OwnsOffice(e.TeachingOfficeID) {
				return change{}, ErrNotOwner
			}
			return change{
				Fields:  map[string]interface{}{"content": content},
				Details: map[string]interface{}{"content_bytes": len(content)},
			}, nil
		})
}

func (s *evaluationService) Submit(ctx context.Context, actor model.Actor, id string, expected *int) (*model.Evaluation, error) {
	return s.lc.run(ctx, actor, id, expected, model.OpSubmit,
		func(_ *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			if !actor.OwnsOffice(e.TeachingOfficeID) {
				return change{}, ErrNotOwner
			}
			now := time.Now().UTC()
			return change{
				Fields:  map[string]interface{}{"submitted_at": now},
				Details: map[string]interface{}{"submitted_at": now.Format(time.RFC3339)},
			}, nil
		})
}

func (s *evaluationService) Unlock(ctx context.Context, actor model.Actor, id string, req *dto.UnlockRequest) (*model.Evaluation, error) {
	return s.lc.run(ctx, actor, id, req.Version, model.OpUnlock,
		func(_ *repository.Repository, _ *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			return change{Details: map[string]interface{}{"reason": req.Reason}}, nil
		})
}

func (s *evaluationService) Get(ctx context.Context, actor model.Actor, id string) (*dto.EvaluationDetail, error) {
	e, err := s.lc.load(ctx, s.repo, actor, id, nil)
	if err != nil {
		return nil, err
	}

	d := &dto.EvaluationDetail{Evaluation: e}
	if d.Attachments, err = s.repo.Attachment.ListByEvaluation(ctx, id); err != nil {
		return nil, err
	}
	if d.ManualScores, err = s.repo.Score.ListManualScores(ctx, id); err != nil {
		return nil, err
	}
	if d.Anomalies, err = s.repo.Anomaly.ListByEvaluation(ctx, id); err != nil {
		return nil, err
	}
	if d.AIScore, err = optional(s.repo.Score.GetAIScore(ctx, id)); err != nil {
		return nil, err
	}
	if d.FinalScore, err = optional(s.repo.Score.GetFinalScore(ctx, id)); err != nil {
		return nil, err
	}
	if d.Insight, err = optional(s.repo.Insight.GetByEvaluation(ctx, id)); err != nil {
		return nil, err
	}
	d.Allowed = workflow.Allowed(actor, e.Status)
	return d, nil
}

func (s *evaluationService) List(ctx context.Context, actor model.Actor, req *dto.EvaluationListRequest) ([]model.Evaluation, int64, error) {
	f := repository.EvaluationFilter{
		TeachingOfficeID: req.TeachingOfficeID,
		Year:             req.Year,
		Status:           model.EvaluationStatus(req.Status),
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, pkgerrors.New(pkgerrors.ErrInvalidArgument, "未知的评估状态")
	}
	// 教研室只能看到本室
	if !actor.Can(model.CapViewAll) {
		if actor.TeachingOfficeID == "" {
			return nil, 0, ErrNoOffice
		}
		f.TeachingOfficeID = actor.TeachingOfficeID
	}
	return s.repo.Evaluation.List(ctx, f, req.GetOffset(), req.GetPageSize())
}

func (s *evaluationService) History(ctx context.Context, actor model.Actor, id string) ([]model.OperationLog, error) {
	if _, err := s.lc.load(ctx, s.repo, actor, id, nil); err != nil {
		return nil, err
	}
	return s.repo.OperationLog.ListByTarget(ctx, model.TargetEvaluation, id)
}

func (s *evaluationService) Transitions() []dto.TransitionRule {
	table := workflow.Table()
	rules := make([]dto.TransitionRule, 0, len(table))
	for _, t := range table {
		from := make([]string, 0, len(t.From))
		for _, f := range t.From {
			from = append(from, string(f))
		}
		rules = append(rules, dto.TransitionRule{
			Operation: t.Operation,
			From:      from,
			To:        string(t.To),
			Guard:     t.Guard,
		})
	}
	return rules
}

// optional 记录不存在时返回 nil 而非错误
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return v, err
}
