package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
)

// ApprovalService 校长办公会审定接口
type ApprovalService interface {
	// Approve 批量审定通过；任一评估不满足条件时整批不生效
	Approve(ctx context.Context, actor model.Actor, req *dto.ApprovalRequest) (*model.Approval, error)
	// Reject 批量驳回，须填写原因
	Reject(ctx context.Context, actor model.Actor, req *dto.ApprovalRequest) (*model.Approval, error)
	// Resubmit 评估办将被驳回的评估重新报送，沿用原最终得分
	Resubmit(ctx context.Context, actor model.Actor, evaluationID string, req *dto.ResubmitRequest) (*model.Evaluation, error)
	List(ctx context.Context, actor model.Actor, req *dto.PaginationRequest) ([]model.Approval, int64, error)
}

type approvalService struct {
	repo   *repository.Repository
	lc     *lifecycle
	logger *zap.Logger
}

// NewApprovalService 创建 ApprovalService 实例
func NewApprovalService(repo *repository.Repository, logger *zap.Logger) ApprovalService {
	return &approvalService{repo: repo, lc: newLifecycle(repo, logger), logger: logger}
}

func (s *approvalService) Approve(ctx context.Context, actor model.Actor, req *dto.ApprovalRequest) (*model.Approval, error) {
	return s.decide(ctx, actor, req.EvaluationIDs, model.DecisionApprove, "")
}

func (s *approvalService) Reject(ctx context.Context, actor model.Actor, req *dto.ApprovalRequest) (*model.Approval, error) {
	reason := strings.TrimSpace(req.RejectReason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}
	return s.decide(ctx, actor, req.EvaluationIDs, model.DecisionReject, reason)
}

// decide 写入审定记录并逐个迁移评估，同一事务
func (s *approvalService) decide(ctx context.Context, actor model.Actor, ids []string, decision model.ApprovalDecision, reason string) (*model.Approval, error) {
	if !actor.Can(model.CapApprove) {
		return nil, ErrNoCapability
	}
	ids = uniqueIDs(ids)
	a := &model.Approval{
		EvaluationIDs: datatypes.NewJSONSlice(ids),
		Decision:      decision,
		ApprovedBy:    actor.UserID,
	}
	if reason != "" {
		a.RejectReason = &reason
	}
	op := model.OpApprove
	if decision == model.DecisionReject {
		op = model.OpReject
	}

	var done []applied
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Approval.Create(ctx, a); err != nil {
			return err
		}
		for _, id := range ids {
			e, err := s.lc.load(ctx, tx, actor, id, nil)
			if err != nil {
				return err
			}
			d, err := s.lc.step(ctx, tx, actor, e, op, func(model.EvaluationStatus) (change, error) {
				details := map[string]interface{}{"approval_id": a.ID}
				if reason != "" {
					details["reject_reason"] = reason
				}
				return change{Details: details}, nil
			})
			if err != nil {
				return err
			}
			done = append(done, d)
		}
		return appendLog(ctx, tx, actor, op, model.TargetApproval, a.ID, map[string]interface{}{
			"decision":       decision,
			"evaluation_ids": ids,
			"reject_reason":  reason,
		})
	})
	if err != nil {
		return nil, err
	}
	s.lc.record(done...)
	return a, nil
}

func (s *approvalService) Resubmit(ctx context.Context, actor model.Actor, evaluationID string, req *dto.ResubmitRequest) (*model.Evaluation, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}
	return s.lc.run(ctx, actor, evaluationID, req.Version, model.OpResubmitToPresident,
		func(tx *repository.Repository, e *model.Evaluation, _ model.EvaluationStatus) (change, error) {
			fs, err := optional(tx.Score.GetFinalScore(ctx, e.ID))
			if err != nil {
				return change{}, err
			}
			if fs == nil {
				return change{}, ErrMissingFinalScore
			}
			details := map[string]interface{}{
				"reason":         reason,
				"final_score_id": fs.ID,
				"final_score":    fs.FinalScore,
			}
			last, err := optional(tx.Approval.LatestFor(ctx, e.ID, model.DecisionReject))
			if err != nil {
				return change{}, err
			}
			if last != nil {
				details["rejected_approval_id"] = last.ID
				if last.RejectReason != nil {
					details["previous_reject_reason"] = *last.RejectReason
				}
			}
			return change{Details: details}, nil
		})
}

func (s *approvalService) List(ctx context.Context, actor model.Actor, req *dto.PaginationRequest) ([]model.Approval, int64, error) {
	if !actor.Can(model.CapViewAll) {
		return nil, 0, ErrNoCapability
	}
	return s.repo.Approval.List(ctx, req.GetOffset(), req.GetPageSize())
}

// uniqueIDs 去重并保持原有顺序
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
