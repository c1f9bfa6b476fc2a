package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// AnomalyService 异常处理接口
type AnomalyService interface {
	List(ctx context.Context, actor model.Actor, evaluationID string) ([]model.Anomaly, error)
	// Handle 驳回或修正一条待处理异常；两种动作互斥，已处理的异常不能再次处理
	Handle(ctx context.Context, actor model.Actor, evaluationID, anomalyID string, req *dto.HandleAnomalyRequest) (*model.Evaluation, error)
}

type anomalyService struct {
	repo   *repository.Repository
	lc     *lifecycle
	logger *zap.Logger
}

// NewAnomalyService 创建 AnomalyService 实例
func NewAnomalyService(repo *repository.Repository, logger *zap.Logger) AnomalyService {
	return &anomalyService{repo: repo, lc: newLifecycle(repo, logger), logger: logger}
}

func (s *anomalyService) List(ctx context.Context, actor model.Actor, evaluationID string) ([]model.Anomaly, error) {
	if _, err := s.lc.load(ctx, s.repo, actor, evaluationID, nil); err != nil {
		return nil, err
	}
	return s.repo.Anomaly.ListByEvaluation(ctx, evaluationID)
}

func (s *anomalyService) Handle(ctx context.Context, actor model.Actor, evaluationID, anomalyID string, req *dto.HandleAnomalyRequest) (*model.Evaluation, error) {
	if !actor.Can(model.CapHandleAnomaly) {
		return nil, ErrNoCapability
	}
	// 已处理的异常先于状态校验返回，驳回后评估已不在可处理状态
	a, err := s.repo.Anomaly.GetByID(ctx, anomalyID)
	if err != nil {
		return nil, notFound(err, ErrAnomalyNotFound)
	}
	if a.EvaluationID != evaluationID {
		return nil, ErrAnomalyMismatch
	}
	if a.Status == model.AnomalyHandled {
		return nil, ErrAlreadyHandled
	}

	action := model.AnomalyAction(req.Action)
	switch action {
	case model.AnomalyActionReject:
		reason := strings.TrimSpace(req.RejectReason)
		if reason == "" {
			return nil, ErrRejectReasonRequired
		}
		return s.lc.run(ctx, actor, evaluationID, req.Version, model.OpRejectAnomaly,
			func(tx *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
				a, err := s.claim(ctx, tx, actor, e, anomalyID, action, reason)
				if err != nil {
					return change{}, err
				}
				return change{Details: map[string]interface{}{
					"anomaly_id":    a.ID,
					"indicator":     a.Indicator,
					"reject_reason": reason,
				}}, nil
			})

	case model.AnomalyActionCorrect:
		patch, err := decodePatch(req.CorrectedData)
		if err != nil {
			return nil, err
		}
		return s.lc.run(ctx, actor, evaluationID, req.Version, model.OpCorrectAnomaly,
			func(tx *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
				merged, diff, err := mergeContent(e.Content, patch)
				if err != nil {
					return change{}, err
				}
				a, err := s.claim(ctx, tx, actor, e, anomalyID, action, req.Note)
				if err != nil {
					return change{}, err
				}
				return change{
					Fields: map[string]interface{}{"content": merged},
					Details: map[string]interface{}{
						"anomaly_id": a.ID,
						"indicator":  a.Indicator,
						"diff":       diff,
						"note":       req.Note,
					},
				}, nil
			})
	}
	return nil, pkgerrors.New(pkgerrors.ErrInvalidArgument, "处理动作只能是 reject 或 correct")
}

// claim 校验异常归属并以条件更新标记为已处理
func (s *anomalyService) claim(ctx context.Context, tx *repository.Repository, actor model.Actor, e *model.Evaluation, anomalyID string, action model.AnomalyAction, note string) (*model.Anomaly, error) {
	a, err := tx.Anomaly.GetByID(ctx, anomalyID)
	if err != nil {
		return nil, notFound(err, ErrAnomalyNotFound)
	}
	if a.EvaluationID != e.ID {
		return nil, ErrAnomalyMismatch
	}
	if a.Status == model.AnomalyHandled {
		return nil, ErrAlreadyHandled
	}
	if err := tx.Anomaly.MarkHandled(ctx, a, actor.UserID, action, note); err != nil {
		return nil, err
	}
	return a, nil
}

// ── 修正数据合并 ──

// decodePatch 修正数据必须是非空 JSON 对象
func decodePatch(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, ErrCorrectedDataInvalid
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patch); err != nil || len(patch) == 0 {
		return nil, ErrCorrectedDataInvalid
	}
	return patch, nil
}

// fieldDiff 单个顶层字段的修正前后值
type fieldDiff struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// mergeContent 按顶层键浅合并到自评内容，合并结果须仍能通过内容校验
func mergeContent(current []byte, patch map[string]json.RawMessage) (datatypes.JSON, map[string]fieldDiff, error) {
	doc := map[string]json.RawMessage{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.ErrInternal, "已保存的自评内容无法解析", err)
		}
	}

	diff := make(map[string]fieldDiff, len(patch))
	for k, v := range patch {
		before := doc[k]
		if before == nil {
			before = json.RawMessage("null")
		}
		diff[k] = fieldDiff{Before: before, After: v}
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	normalized, err := normalizeContent(merged)
	if err != nil {
		return nil, nil, err
	}
	return normalized, diff, nil
}
