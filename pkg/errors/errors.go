package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ── 错误分类（Kind） ──
// 业务错误均包装其中之一，Handler 层据此映射 HTTP 状态码。

var (
	ErrNotFound          = errors.New("记录不存在")
	ErrUnauthorized      = errors.New("未认证")
	ErrForbidden         = errors.New("无权限执行此操作")
	ErrInvalidTransition = errors.New("当前状态不允许执行此操作")
	ErrConflict          = errors.New("数据冲突")
	ErrImmutable         = errors.New("记录不可修改或删除")
	ErrAlreadyHandled    = errors.New("异常已处理")
	ErrScoreOutOfRange   = errors.New("最终得分偏离加权均值超过允许范围")
	ErrBadAIResponse     = errors.New("AI 返回结果无法解析")
	ErrChecksumMismatch  = errors.New("同步数据校验和不一致")
	ErrTransient         = errors.New("临时性故障，可重试")
	ErrInternal          = errors.New("服务器内部错误")
	ErrInvalidArgument   = errors.New("参数校验失败")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = New(ErrConflict, "数据已被其他操作修改，请刷新后重试")

// kinds 按匹配优先级排列
var kinds = []error{
	ErrNotFound,
	ErrUnauthorized,
	ErrForbidden,
	ErrInvalidTransition,
	ErrConflict,
	ErrImmutable,
	ErrAlreadyHandled,
	ErrScoreOutOfRange,
	ErrBadAIResponse,
	ErrChecksumMismatch,
	ErrTransient,
	ErrInvalidArgument,
	ErrInternal,
}

// domainError 带安全提示信息的业务错误
type domainError struct {
	kind error
	msg  string
	err  error
}

func (e *domainError) Error() string { return e.msg }

// Is 同时匹配错误分类与底层原因
func (e *domainError) Is(target error) bool {
	return target == e.kind
}

func (e *domainError) Unwrap() error { return e.err }

// New 创建归属于 kind 的业务错误，msg 可直接返回给客户端
func New(kind error, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

// Wrap 以 kind 包装底层错误，对外只暴露 msg
func Wrap(kind error, msg string, err error) error {
	return &domainError{kind: kind, msg: msg, err: err}
}

// KindOf 返回错误所属分类，无法识别时返回 ErrInternal
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if IsUniqueViolation(err) {
		return ErrConflict
	}
	if isImmutableTrigger(err) {
		return ErrImmutable
	}
	return ErrInternal
}

// IsUniqueViolation 判断是否为唯一约束冲突（PostgreSQL 23505 或 GORM 翻译后的错误）
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isImmutableTrigger 识别 PostgreSQL 不可变触发器抛出的异常（见 000002 迁移）
func isImmutableTrigger(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "P0001" && pgErr.Hint == "immutable_record"
	}
	return false
}

// SafeMessage 返回可展示给客户端的信息；内部错误不透出原文
func SafeMessage(err error) string {
	kind := KindOf(err)
	if kind == ErrInternal {
		return ErrInternal.Error()
	}
	var de *domainError
	if errors.As(err, &de) {
		return de.msg
	}
	return kind.Error()
}
