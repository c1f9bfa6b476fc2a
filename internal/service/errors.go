package service

import (
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// 业务模块错误，均归属于 pkg/errors 中的分类
var (
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.ErrUnauthorized, "用户名或密码错误")
	ErrTokenInvalid       = pkgerrors.New(pkgerrors.ErrUnauthorized, "Token 无效或已过期")
	ErrWrongPassword      = pkgerrors.New(pkgerrors.ErrInvalidArgument, "原密码错误")

	ErrUserNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "用户不存在")
	ErrEvaluationNotFound  = pkgerrors.New(pkgerrors.ErrNotFound, "评估记录不存在")
	ErrAttachmentNotFound  = pkgerrors.New(pkgerrors.ErrNotFound, "附件不存在")
	ErrAnomalyNotFound     = pkgerrors.New(pkgerrors.ErrNotFound, "异常记录不存在")
	ErrPublicationNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "公示记录不存在")
	ErrSyncTaskNotFound    = pkgerrors.New(pkgerrors.ErrNotFound, "同步任务不存在")
	ErrAITaskNotFound      = pkgerrors.New(pkgerrors.ErrNotFound, "AI 评分任务不存在")
	ErrUploadNotFound      = pkgerrors.New(pkgerrors.ErrNotFound, "上传会话不存在或已过期")
	ErrInsightNotFound     = pkgerrors.New(pkgerrors.ErrNotFound, "尚未生成洞察摘要")

	ErrNotOwner      = pkgerrors.New(pkgerrors.ErrForbidden, "只能操作本教研室的评估")
	ErrNoOffice      = pkgerrors.New(pkgerrors.ErrForbidden, "当前账号未绑定教研室")
	ErrNoCapability  = pkgerrors.New(pkgerrors.ErrForbidden, "当前角色无权执行该操作")
	ErrNotReviewer   = pkgerrors.New(pkgerrors.ErrForbidden, "当前角色不是评审角色，不能提交人工评分")
	ErrNotUploadUser = pkgerrors.New(pkgerrors.ErrForbidden, "只能操作自己创建的上传会话")

	ErrInvalidContent       = pkgerrors.New(pkgerrors.ErrInvalidArgument, "自评内容格式不正确")
	ErrUnknownIndicator     = pkgerrors.New(pkgerrors.ErrInvalidArgument, "未知的考核指标")
	ErrRejectReasonRequired = pkgerrors.New(pkgerrors.ErrInvalidArgument, "驳回时必须填写原因")
	ErrCorrectedDataInvalid = pkgerrors.New(pkgerrors.ErrInvalidArgument, "修正数据必须是非空 JSON 对象")
	ErrFileTooLarge         = pkgerrors.New(pkgerrors.ErrInvalidArgument, "文件超过大小限制")
	ErrFileTypeNotAllowed   = pkgerrors.New(pkgerrors.ErrInvalidArgument, "不支持的文件类型")
	ErrChunkOutOfRange      = pkgerrors.New(pkgerrors.ErrInvalidArgument, "分片序号超出范围")
	ErrChunkSizeMismatch    = pkgerrors.New(pkgerrors.ErrInvalidArgument, "分片大小与会话不一致")
	ErrUploadIncomplete     = pkgerrors.New(pkgerrors.ErrInvalidArgument, "仍有分片未上传，无法完成")
	ErrInvalidTimeRange     = pkgerrors.New(pkgerrors.ErrInvalidArgument, "时间格式应为 RFC3339")
	ErrMissingFinalScore    = pkgerrors.New(pkgerrors.ErrInvalidArgument, "存在尚未确定最终得分的评估")

	ErrAttachmentLocked   = pkgerrors.New(pkgerrors.ErrInvalidTransition, "评估已提交，附件不可变更")
	ErrUploadClosed       = pkgerrors.New(pkgerrors.ErrInvalidTransition, "上传会话已结束")
	ErrAnomalyMismatch    = pkgerrors.New(pkgerrors.ErrInvalidArgument, "异常不属于该评估")
	ErrSyncNotRetryable   = pkgerrors.New(pkgerrors.ErrInvalidTransition, "只有失败的同步任务可以重试")
	ErrPublicationDone    = pkgerrors.New(pkgerrors.ErrInvalidTransition, "该公示已分发")
	ErrEvaluationExists   = pkgerrors.New(pkgerrors.ErrConflict, "该年度评估已存在")
	ErrDuplicateReview    = pkgerrors.New(pkgerrors.ErrConflict, "该评审人已提交过评分")
	ErrAlreadyPublished   = pkgerrors.New(pkgerrors.ErrConflict, "评估已包含在其他公示中")
	ErrFinalScoreExists   = pkgerrors.New(pkgerrors.ErrConflict, "最终得分已确定")
	ErrAITaskInProgress   = pkgerrors.New(pkgerrors.ErrConflict, "该评估已有进行中的 AI 评分任务")
	ErrAlreadyHandled     = pkgerrors.New(pkgerrors.ErrAlreadyHandled, "异常已处理，不能重复处理")
	ErrPoolUnavailable    = pkgerrors.New(pkgerrors.ErrTransient, "后台任务繁忙或已关闭，请稍后重试")
	ErrRemoteNotAvailable = pkgerrors.New(pkgerrors.ErrInternal, "远程服务未配置")
)
