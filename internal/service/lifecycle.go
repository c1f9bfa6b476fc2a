package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/workflow"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// change 一次状态迁移附带的字段更新与审计详情
type change struct {
	Fields  map[string]interface{}
	Details map[string]interface{}
}

// applied 已提交的迁移，用于提交后记录指标
type applied struct {
	Operation string
	To        model.EvaluationStatus
}

// lifecycle 评估状态迁移执行器
// 每次迁移：条件更新 evaluations（status + version）并追加一条审计日志，二者同一事务
type lifecycle struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func newLifecycle(repo *repository.Repository, logger *zap.Logger) *lifecycle {
	return &lifecycle{repo: repo, logger: logger}
}

// load 读取评估并校验可见性与客户端携带的版本号
// 版本号不一致直接返回冲突，先于状态校验
func (l *lifecycle) load(ctx context.Context, tx *repository.Repository, actor model.Actor, id string, expected *int) (*model.Evaluation, error) {
	e, err := tx.Evaluation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, err
	}
	if err := visible(actor, e); err != nil {
		return nil, err
	}
	if expected != nil && *expected != e.Version {
		metrics.RecordConflict("version_check")
		return nil, pkgerrors.ErrOptimisticLock
	}
	return e, nil
}

// visible 教研室只能看到本室评估；评审管理角色可见全部
func visible(actor model.Actor, e *model.Evaluation) error {
	if actor.Can(model.CapViewAll) || actor.OwnsOffice(e.TeachingOfficeID) {
		return nil
	}
	return ErrNotOwner
}

// step 在已开启的事务内执行一次迁移
// prepare 在状态校验通过后、条件更新前执行，用于写入附属记录或计算字段
func (l *lifecycle) step(
	ctx context.Context,
	tx *repository.Repository,
	actor model.Actor,
	e *model.Evaluation,
	op string,
	prepare func(to model.EvaluationStatus) (change, error),
) (applied, error) {
	to, err := workflow.Check(actor, e.Status, op)
	if err != nil {
		return applied{}, err
	}

	var c change
	if prepare != nil {
		if c, err = prepare(to); err != nil {
			return applied{}, err
		}
	}

	from := e.Status
	if err := tx.Evaluation.Transition(ctx, e, to, c.Fields); err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			metrics.RecordConflict(op)
		}
		return applied{}, err
	}

	details := map[string]interface{}{
		"from":    from,
		"to":      to,
		"version": e.Version,
		"year":    e.Year,
	}
	for k, v := range c.Details {
		details[k] = v
	}
	if err := appendLog(ctx, tx, actor, op, model.TargetEvaluation, e.ID, details); err != nil {
		return applied{}, err
	}
	return applied{Operation: op, To: to}, nil
}

// run 单个评估的完整迁移：开启事务 → 读取 → 迁移 → 提交 → 记录指标
func (l *lifecycle) run(
	ctx context.Context,
	actor model.Actor,
	id string,
	expected *int,
	op string,
	prepare func(tx *repository.Repository, e *model.Evaluation, to model.EvaluationStatus) (change, error),
) (*model.Evaluation, error) {
	var e *model.Evaluation
	var done applied
	err := l.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if e, err = l.load(ctx, tx, actor, id, expected); err != nil {
			return err
		}
		var p func(model.EvaluationStatus) (change, error)
		if prepare != nil {
			p = func(to model.EvaluationStatus) (change, error) { return prepare(tx, e, to) }
		}
		done, err = l.step(ctx, tx, actor, e, op, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.record(done)
	return e, nil
}

// record 提交成功后记录迁移指标
func (l *lifecycle) record(list ...applied) {
	for _, a := range list {
		metrics.RecordTransition(a.Operation, string(a.To))
		l.logger.Debug("评估状态迁移", zap.String("operation", a.Operation), zap.String("to", string(a.To)))
	}
}

// ── 审计日志 ──

// appendLog 追加一条审计日志；details 序列化为 JSON
func appendLog(ctx context.Context, tx *repository.Repository, actor model.Actor, op, targetType, targetID string, details interface{}) error {
	raw := datatypes.JSON("{}")
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		raw = datatypes.JSON(b)
	}
	return tx.OperationLog.Create(ctx, &model.OperationLog{
		OperationType: op,
		OperatorID:    actor.UserID,
		OperatorName:  actor.Name,
		OperatorRole:  string(actor.Role),
		TargetID:      targetID,
		TargetType:    targetType,
		Details:       raw,
	})
}

// notFound 将 gorm.ErrRecordNotFound 映射为模块错误
func notFound(err, mapped error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mapped
	}
	return err
}
