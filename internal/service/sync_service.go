package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/worker"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// SyncService 向校长办公会同步评估数据的接口
type SyncService interface {
	// Start 创建同步任务并立即返回，数据组装与投递在后台执行
	Start(ctx context.Context, actor model.Actor, req *dto.SyncRequest) (*model.SyncTask, error)
	// Retry 重新执行失败的同步任务
	Retry(ctx context.Context, actor model.Actor, taskID string) (*model.SyncTask, error)
	List(ctx context.Context, actor model.Actor, req *dto.SyncListRequest) ([]model.SyncTask, int64, error)
	Get(ctx context.Context, actor model.Actor, taskID string) (*model.SyncTask, error)
	// Run 执行同步任务（后台任务池调用；测试可直接调用）
	Run(ctx context.Context, taskID string)
	// SweepStale 将超时仍在 syncing 的任务判定为放弃
	SweepStale(ctx context.Context) (int64, error)
	// Receive 接收端：校验数据包完整性并记录接收日志
	Receive(ctx context.Context, body []byte, headerTaskID, headerChecksum string) (*dto.ReceiveAck, error)
}

type syncService struct {
	cfg    *config.Config
	repo   *repository.Repository
	sender president.Sender
	pool   *worker.Pool
	logger *zap.Logger
}

// NewSyncService 创建 SyncService 实例
func NewSyncService(cfg *config.Config, repo *repository.Repository, sender president.Sender, pool *worker.Pool, logger *zap.Logger) SyncService {
	return &syncService{cfg: cfg, repo: repo, sender: sender, pool: pool, logger: logger}
}

func (s *syncService) Start(ctx context.Context, actor model.Actor, req *dto.SyncRequest) (*model.SyncTask, error) {
	if !actor.Can(model.CapSync) {
		return nil, ErrNoCapability
	}
	ids := uniqueIDs(req.EvaluationIDs)

	evals, err := s.repo.Evaluation.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(evals) != len(ids) {
		return nil, ErrEvaluationNotFound
	}
	finals, err := s.repo.Score.ListFinalScores(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(finals) != len(ids) {
		return nil, ErrMissingFinalScore
	}

	task := &model.SyncTask{
		EvaluationIDs: datatypes.NewJSONSlice(ids),
		Status:        model.SyncSyncing,
		TotalCount:    len(ids),
		CreatedBy:     actor.UserID,
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.SyncTask.Create(ctx, task); err != nil {
			return err
		}
		return appendLog(ctx, tx, actor, model.OpSync, model.TargetSyncTask, task.ID, map[string]interface{}{
			"evaluation_ids": ids,
			"total_count":    task.TotalCount,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.submit(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *syncService) Retry(ctx context.Context, actor model.Actor, taskID string) (*model.SyncTask, error) {
	if !actor.Can(model.CapSync) {
		return nil, ErrNoCapability
	}
	task, err := s.repo.SyncTask.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, ErrSyncTaskNotFound)
	}
	if task.Status != model.SyncFailed {
		return nil, ErrSyncNotRetryable
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.SyncTask.Restart(ctx, task)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSyncNotRetryable
		}
		return appendLog(ctx, tx, actor, model.OpSyncRetry, model.TargetSyncTask, task.ID, map[string]interface{}{
			"retry_count": task.RetryCount,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRetry("sync_task")

	if err := s.submit(task); err != nil {
		return nil, err
	}
	return task, nil
}

// submit 投递到后台任务池；任务池不可用时直接将任务置为失败
func (s *syncService) submit(task *model.SyncTask) error {
	taskID := task.ID
	err := s.pool.Submit("sync", func(jobCtx context.Context) { s.Run(jobCtx, taskID) })
	if err == nil {
		return nil
	}
	s.logger.Error("提交同步任务失败", zap.String("task_id", taskID), zap.Error(err))
	s.finish(context.Background(), task, nil, 0, []string{ErrPoolUnavailable.Error()})
	return ErrPoolUnavailable
}

func (s *syncService) List(ctx context.Context, actor model.Actor, req *dto.SyncListRequest) ([]model.SyncTask, int64, error) {
	if !actor.Can(model.CapSync) {
		return nil, 0, ErrNoCapability
	}
	return s.repo.SyncTask.List(ctx, model.SyncStatus(req.Status), req.GetOffset(), req.GetPageSize())
}

func (s *syncService) Get(ctx context.Context, actor model.Actor, taskID string) (*model.SyncTask, error) {
	if !actor.Can(model.CapSync) {
		return nil, ErrNoCapability
	}
	task, err := s.repo.SyncTask.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, ErrSyncTaskNotFound)
	}
	return task, nil
}

func (s *syncService) SweepStale(ctx context.Context) (int64, error) {
	before := time.Now().UTC().Add(-s.cfg.Sync.StaleAfter)
	n, err := s.repo.SyncTask.MarkStaleFailed(ctx, before, "同步超时，任务已放弃")
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		metrics.RecordSyncTask("abandoned")
	}
	if n > 0 {
		s.logger.Warn("同步任务超时已放弃", zap.Int64("count", n), zap.Time("before", before))
	}
	return n, nil
}

// ── 后台执行 ──

func (s *syncService) Run(ctx context.Context, taskID string) {
	log := s.logger.With(zap.String("task_id", taskID))

	task, err := s.repo.SyncTask.GetByID(ctx, taskID)
	if err != nil {
		log.Error("读取同步任务失败", zap.Error(err))
		return
	}
	if task.Status != model.SyncSyncing {
		log.Info("同步任务不在 syncing 状态，跳过", zap.String("status", string(task.Status)))
		return
	}

	ready, problems, err := s.snapshots(ctx, task.EvaluationIDs)
	if err != nil {
		s.finish(ctx, task, nil, 0, []string{pkgerrors.SafeMessage(err)})
		return
	}
	if len(ready) == 0 {
		s.finish(ctx, task, nil, 0, append(problems, "没有可同步的完整评估"))
		return
	}

	pkg, body, err := president.Build(task.ID, s.cfg.Server.BaseURL, time.Now().UTC(), ready)
	if err != nil {
		s.finish(ctx, task, nil, 0, append(problems, err.Error()))
		return
	}
	// 数据包与校验和随结果一并写入，重试时重新组装
	task.Checksum = &pkg.Checksum
	task.SyncData = datatypes.JSON(body)

	ack, err := s.sender.Send(ctx, task.ID, pkg.Checksum, body)
	if err == nil && ack != nil && ack.Status != "success" {
		err = pkgerrors.New(pkgerrors.ErrInternal, "接收端返回失败: "+ack.Message)
	}
	if err != nil {
		msg := err.Error()
		if pkgerrors.KindOf(err) != pkgerrors.ErrInternal {
			msg = pkgerrors.SafeMessage(err)
		}
		s.finish(ctx, task, nil, 0, append(problems, msg))
		return
	}
	s.finish(ctx, task, ack, len(ready), problems)
}

// snapshots 组装每个评估的同步数据；数据不完整的评估计入失败并记录原因
func (s *syncService) snapshots(ctx context.Context, ids []string) ([]president.EvaluationSyncData, []string, error) {
	evals, err := s.repo.Evaluation.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	aiScores, err := s.repo.Score.ListAIScores(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	manual, err := s.repo.Score.ListManualScoresByEvaluations(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	finals, err := s.repo.Score.ListFinalScores(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	atts, err := s.repo.Attachment.ListByEvaluations(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	anomalies, err := s.repo.Anomaly.ListByEvaluations(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	evalByID := make(map[string]*model.Evaluation, len(evals))
	for i := range evals {
		evalByID[evals[i].ID] = &evals[i]
	}
	aiByID := make(map[string]*model.AIScore, len(aiScores))
	for i := range aiScores {
		aiByID[aiScores[i].EvaluationID] = &aiScores[i]
	}
	finalByID := make(map[string]*model.FinalScore, len(finals))
	for i := range finals {
		finalByID[finals[i].EvaluationID] = &finals[i]
	}
	manualByID := map[string][]model.ManualScore{}
	for _, m := range manual {
		manualByID[m.EvaluationID] = append(manualByID[m.EvaluationID], m)
	}
	attsByID := map[string][]model.Attachment{}
	for _, a := range atts {
		attsByID[a.EvaluationID] = append(attsByID[a.EvaluationID], a)
	}
	anomaliesByID := map[string][]model.Anomaly{}
	for _, a := range anomalies {
		anomaliesByID[a.EvaluationID] = append(anomaliesByID[a.EvaluationID], a)
	}

	var ready []president.EvaluationSyncData
	var problems []string
	for _, id := range ids {
		e, ok := evalByID[id]
		if !ok {
			problems = append(problems, "评估 "+id+" 不存在")
			continue
		}
		officeName := ""
		if e.TeachingOffice != nil {
			officeName = e.TeachingOffice.Name
		}
		d := president.Snapshot(e, officeName, aiByID[id], manualByID[id], finalByID[id], attsByID[id], anomaliesByID[id])
		if err := d.IncompleteError(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		ready = append(ready, d)
	}
	return ready, problems, nil
}

// finish 写入任务结果；ack 为空表示投递失败，失败次数计入 retry_count
func (s *syncService) finish(ctx context.Context, task *model.SyncTask, ack *president.Ack, synced int, problems []string) {
	now := time.Now().UTC()
	task.CompletedAt = &now
	task.SyncedCount = synced
	task.FailedCount = task.TotalCount - synced
	task.ErrorMessage = nil
	if len(problems) > 0 {
		msg := strings.Join(problems, "; ")
		task.ErrorMessage = &msg
	}

	outcome := "completed"
	if ack != nil {
		task.Status = model.SyncCompleted
	} else {
		outcome = "failed"
		task.Status = model.SyncFailed
		task.RetryCount++
	}

	ok, err := s.repo.SyncTask.Finish(ctx, task)
	if err != nil {
		s.logger.Error("保存同步结果失败", zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	if !ok {
		s.logger.Warn("同步任务已被判定放弃，丢弃本次结果", zap.String("task_id", task.ID), zap.String("outcome", outcome))
		return
	}
	metrics.RecordSyncTask(outcome)
	s.logger.Info("同步任务结束",
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)),
		zap.Int("synced", task.SyncedCount),
		zap.Int("failed", task.FailedCount),
	)
}

// ── 接收端 ──

func (s *syncService) Receive(ctx context.Context, body []byte, headerTaskID, headerChecksum string) (*dto.ReceiveAck, error) {
	p, err := president.Verify(body, headerTaskID, headerChecksum)
	if err != nil {
		s.logger.Warn("同步数据校验失败", zap.String("task_id", headerTaskID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(p.Evaluations))
	for _, e := range p.Evaluations {
		ids = append(ids, e.EvaluationID)
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return appendLog(ctx, tx, model.SystemActor(), model.OpSyncIngest, model.TargetSyncTask, p.TaskID, map[string]interface{}{
			"source":         p.Source,
			"checksum":       p.Checksum,
			"total_count":    p.TotalCount,
			"evaluation_ids": ids,
		})
	})
	if err != nil {
		return nil, err
	}
	return &dto.ReceiveAck{Status: "success", Message: "同步数据接收成功", Received: len(p.Evaluations)}, nil
}
