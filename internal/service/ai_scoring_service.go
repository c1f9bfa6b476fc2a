package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/ai"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/scoring"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/worker"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// AIScoringService AI 评分编排接口
type AIScoringService interface {
	// Trigger 受理 AI 评分：已有 AI 评分时同步复用，否则创建任务并在后台执行
	Trigger(ctx context.Context, actor model.Actor, evaluationID string, expected *int) (*model.AIScoringTask, error)
	GetTask(ctx context.Context, actor model.Actor, taskID string) (*model.AIScoringTask, error)
	// Run 执行评分任务（后台任务池调用；测试可直接调用）
	Run(ctx context.Context, taskID string)
}

type aiScoringService struct {
	repo     *repository.Repository
	provider ai.Provider
	pool     *worker.Pool
	lc       *lifecycle
	logger   *zap.Logger
}

// NewAIScoringService 创建 AIScoringService 实例
func NewAIScoringService(repo *repository.Repository, provider ai.Provider, pool *worker.Pool, logger *zap.Logger) AIScoringService {
	return &aiScoringService{
		repo:     repo,
		provider: provider,
		pool:     pool,
		lc:       newLifecycle(repo, logger),
		logger:   logger,
	}
}

func (s *aiScoringService) Trigger(ctx context.Context, actor model.Actor, evaluationID string, expected *int) (*model.AIScoringTask, error) {
	existing, err := optional(s.repo.Score.GetAIScore(ctx, evaluationID))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.reuse(ctx, actor, evaluationID, expected, existing)
	}

	task := &model.AIScoringTask{
		EvaluationID: evaluationID,
		Status:       model.AITaskPending,
		TriggeredBy:  actor.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	var done applied
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, err := s.lc.load(ctx, tx, actor, evaluationID, expected)
		if err != nil {
			return err
		}
		done, err = s.lc.step(ctx, tx, actor, e, model.OpTriggerAI, func(model.EvaluationStatus) (change, error) {
			if err := ensureIdle(ctx, tx, evaluationID); err != nil {
				return change{}, err
			}
			if err := tx.AITask.Create(ctx, task); err != nil {
				return change{}, err
			}
			return change{Details: map[string]interface{}{"task_id": task.ID}}, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.lc.record(done)

	taskID := task.ID
	if err := s.pool.Submit("ai_scoring", func(jobCtx context.Context) { s.Run(jobCtx, taskID) }); err != nil {
		s.logger.Error("提交 AI 评分任务失败", zap.String("task_id", taskID), zap.Error(err))
		s.fail(context.Background(), task, nil, ErrPoolUnavailable)
		return nil, ErrPoolUnavailable
	}
	return task, nil
}

// reuse 评估被异常驳回后重新提交：沿用已有 AI 评分，仅按解析数量重新检测异常
func (s *aiScoringService) reuse(ctx context.Context, actor model.Actor, evaluationID string, expected *int, score *model.AIScore) (*model.AIScoringTask, error) {
	now := time.Now().UTC()
	task := &model.AIScoringTask{
		EvaluationID: evaluationID,
		Status:       model.AITaskCompleted,
		TriggeredBy:  actor.UserID,
		StartedAt:    &now,
		CompletedAt:  &now,
		CreatedAt:    now,
	}
	var anomalies int
	_, err := s.lc.run(ctx, actor, evaluationID, expected, model.OpReuseAIScore,
		func(tx *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			if err := ensureIdle(ctx, tx, evaluationID); err != nil {
				return change{}, err
			}
			content, err := model.ParseContent(e.Content)
			if err != nil {
				return change{}, pkgerrors.Wrap(pkgerrors.ErrInvalidArgument, err.Error(), err)
			}
			list := scoring.DetectAnomalies(e.ID, content, score)
			if err := tx.Anomaly.CreateBatch(ctx, list); err != nil {
				return change{}, err
			}
			moves, err := s.recoverClassifications(ctx, tx, e.ID, score)
			if err != nil {
				return change{}, err
			}
			if err := tx.AITask.Create(ctx, task); err != nil {
				return change{}, err
			}
			anomalies = len(list)
			return change{Details: map[string]interface{}{
				"task_id":      task.ID,
				"ai_score_id":  score.ID,
				"total_score":  score.TotalScore,
				"anomalies":    anomalies,
				"reclassified": moves,
			}}, nil
		})
	if err != nil {
		return nil, err
	}
	metrics.RecordAIScoring("reused")
	metrics.RecordAnomalies(anomalies)
	return task, nil
}

// recoverClassifications 评分写入后迁移未能提交时，复用路径补做 AI 附件归类
// 评估曾经进入过 ai_scored 则不再覆盖，保留人工调整后的归类
func (s *aiScoringService) recoverClassifications(ctx context.Context, tx *repository.Repository, evaluationID string, score *model.AIScore) (int, error) {
	logs, err := tx.OperationLog.ListByTarget(ctx, model.TargetEvaluation, evaluationID)
	if err != nil {
		return 0, err
	}
	for _, l := range logs {
		if l.OperationType == model.OpAIScored || l.OperationType == model.OpReuseAIScore {
			return 0, nil
		}
	}
	result, err := scoring.ParseAIResponse(score.RawResponse)
	if err != nil {
		s.logger.Warn("已存储的 AI 响应无法解析，跳过附件归类", zap.String("evaluation_id", evaluationID), zap.Error(err))
		return 0, nil
	}
	return applyClassifications(ctx, tx, evaluationID, result.AttachmentClassifications)
}

// applyClassifications 按 AI 归类调整附件指标，每次调整写一条审计日志
func applyClassifications(ctx context.Context, tx *repository.Repository, evaluationID string, cls []scoring.Classification) (int, error) {
	atts, err := tx.Attachment.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return 0, err
	}
	moves := scoring.Reclassify(atts, cls)
	for _, m := range moves {
		if err := tx.Attachment.UpdateIndicator(ctx, m.AttachmentID, m.To, model.ClassifiedByAI); err != nil {
			return 0, err
		}
		if err := appendLog(ctx, tx, model.SystemActor(), model.OpReclassifyAttachment, model.TargetAttachment, m.AttachmentID, map[string]interface{}{
			"evaluation_id": evaluationID,
			"file_name":     m.FileName,
			"from":          m.From,
			"to":            m.To,
			"classified_by": model.ClassifiedByAI,
		}); err != nil {
			return 0, err
		}
	}
	return len(moves), nil
}

// ensureIdle 同一评估同一时刻只允许一个进行中的评分任务
func ensureIdle(ctx context.Context, tx *repository.Repository, evaluationID string) error {
	n, err := tx.AITask.CountActive(ctx, evaluationID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrAITaskInProgress
	}
	return nil
}

func (s *aiScoringService) GetTask(ctx context.Context, actor model.Actor, taskID string) (*model.AIScoringTask, error) {
	task, err := s.repo.AITask.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, ErrAITaskNotFound)
	}
	if _, err := s.lc.load(ctx, s.repo, actor, task.EvaluationID, nil); err != nil {
		return nil, err
	}
	return task, nil
}

// ── 后台执行 ──

func (s *aiScoringService) Run(ctx context.Context, taskID string) {
	log := s.logger.With(zap.String("task_id", taskID))

	task, err := s.repo.AITask.GetByID(ctx, taskID)
	if err != nil {
		log.Error("读取 AI 评分任务失败", zap.Error(err))
		return
	}
	started := time.Now().UTC()
	task.Status = model.AITaskRunning
	task.Attempts++
	task.StartedAt = &started
	if err := s.repo.AITask.Update(ctx, task); err != nil {
		log.Error("更新 AI 评分任务失败", zap.Error(err))
		return
	}

	e, err := s.repo.Evaluation.GetByID(ctx, task.EvaluationID)
	if err != nil {
		s.fail(ctx, task, nil, err)
		return
	}
	if e.Status != model.StatusLocked {
		s.fail(ctx, task, e, pkgerrors.New(pkgerrors.ErrInvalidTransition, fmt.Sprintf("评估状态为 %s，已不再等待 AI 评分", e.Status)))
		return
	}

	score, result, err := s.score(ctx, e)
	if err != nil {
		s.fail(ctx, task, e, err)
		return
	}

	// AI 评分一经写入即不可变；之后的失败不回滚评分
	if err := s.repo.Score.CreateAIScore(ctx, score); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			err = pkgerrors.New(pkgerrors.ErrConflict, "该评估已有 AI 评分")
		}
		s.fail(ctx, task, e, err)
		return
	}

	if err := s.complete(ctx, task, e, score, result); err != nil {
		s.fail(ctx, task, e, err)
		return
	}
	metrics.RecordAIScoring("succeeded")
	log.Info("AI 评分完成", zap.String("evaluation_id", e.ID), zap.Float64("total_score", score.TotalScore))
}

// score 组装提示词、调用模型并解析结果
func (s *aiScoringService) score(ctx context.Context, e *model.Evaluation) (*model.AIScore, *scoring.AIResult, error) {
	content, err := model.ParseContent(e.Content)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArgument, err.Error(), err)
	}
	atts, err := s.repo.Attachment.ListByEvaluation(ctx, e.ID)
	if err != nil {
		return nil, nil, err
	}

	text, err := s.provider.Complete(ctx, scoring.SystemPrompt, scoring.BuildPrompt(content, atts))
	if err != nil {
		return nil, nil, err
	}
	result, err := scoring.ParseAIResponse(text)
	if err != nil {
		return nil, nil, err
	}

	return &model.AIScore{
		EvaluationID:         e.ID,
		TotalScore:           result.TotalScore,
		IndicatorScores:      datatypes.NewJSONSlice(result.IndicatorScores),
		ParsedReformProjects: result.ParsedReformProjects,
		ParsedHonors:         result.ParsedHonors,
		ParsedCompetitions:   result.ParsedCompetitions,
		ParsedInnovations:    result.ParsedInnovations,
		RawResponse:          text,
	}, result, nil
}

// complete 检测异常、按 AI 归类调整附件并迁移到 ai_scored，同一事务
func (s *aiScoringService) complete(ctx context.Context, task *model.AIScoringTask, e *model.Evaluation, score *model.AIScore, result *scoring.AIResult) error {
	system := model.SystemActor()
	content, err := model.ParseContent(e.Content)
	if err != nil {
		return err
	}
	anomalies := scoring.DetectAnomalies(e.ID, content, score)

	var done applied
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := tx.Evaluation.GetByID(ctx, e.ID)
		if err != nil {
			return err
		}
		if current.Version != e.Version {
			return pkgerrors.ErrOptimisticLock
		}
		if err := tx.Anomaly.CreateBatch(ctx, anomalies); err != nil {
			return err
		}

		moves, err := applyClassifications(ctx, tx, e.ID, result.AttachmentClassifications)
		if err != nil {
			return err
		}

		done, err = s.lc.step(ctx, tx, system, current, model.OpAIScored, func(model.EvaluationStatus) (change, error) {
			return change{Details: map[string]interface{}{
				"task_id":      task.ID,
				"ai_score_id":  score.ID,
				"total_score":  score.TotalScore,
				"anomalies":    len(anomalies),
				"reclassified": moves,
			}}, nil
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		task.Status = model.AITaskCompleted
		task.CompletedAt = &now
		task.ErrorMessage = nil
		return tx.AITask.Update(ctx, task)
	})
	if err != nil {
		return err
	}
	s.lc.record(done)
	metrics.RecordAnomalies(len(anomalies))
	return nil
}

// fail 记录任务失败；评估保持 locked，失败写入审计日志
func (s *aiScoringService) fail(ctx context.Context, task *model.AIScoringTask, e *model.Evaluation, cause error) {
	metrics.RecordAIScoring(outcomeOf(cause))
	s.logger.Warn("AI 评分失败", zap.String("task_id", task.ID), zap.String("evaluation_id", task.EvaluationID), zap.Error(cause))

	msg := pkgerrors.SafeMessage(cause)
	if pkgerrors.KindOf(cause) == pkgerrors.ErrInternal {
		msg = cause.Error()
	}
	now := time.Now().UTC()
	task.Status = model.AITaskFailed
	task.ErrorMessage = &msg
	task.CompletedAt = &now

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.AITask.Update(ctx, task); err != nil {
			return err
		}
		details := map[string]interface{}{"task_id": task.ID, "error": msg}
		if e != nil {
			details["status"] = e.Status
		}
		return appendLog(ctx, tx, model.SystemActor(), model.OpAIScoreFailed, model.TargetEvaluation, task.EvaluationID, details)
	})
	if err != nil {
		s.logger.Error("记录 AI 评分失败状态失败", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	switch pkgerrors.KindOf(err) {
	case pkgerrors.ErrBadAIResponse:
		return "bad_response"
	case pkgerrors.ErrTransient:
		return "transient"
	}
	return "failed"
}
