package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
)

// AuditService 审计日志查询接口
type AuditService interface {
	List(ctx context.Context, actor model.Actor, req *dto.OperationLogListRequest) ([]model.OperationLog, int64, error)
}

type auditService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) List(ctx context.Context, actor model.Actor, req *dto.OperationLogListRequest) ([]model.OperationLog, int64, error) {
	if !actor.Can(model.CapViewAudit) {
		return nil, 0, ErrNoCapability
	}
	from, err := parseTime(req.StartTime)
	if err != nil {
		return nil, 0, err
	}
	to, err := parseTime(req.EndTime)
	if err != nil {
		return nil, 0, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, 0, ErrInvalidTimeRange
	}

	filter := repository.OperationLogFilter{
		OperationType: req.OperationType,
		OperatorID:    req.OperatorID,
		TargetID:      req.TargetID,
		TargetType:    req.TargetType,
		From:          from,
		To:            to,
	}
	return s.repo.OperationLog.List(ctx, filter, req.GetOffset(), req.GetPageSize())
}

// parseTime 空串表示不限；否则须为 RFC3339
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, ErrInvalidTimeRange
	}
	t = t.UTC()
	return &t, nil
}
