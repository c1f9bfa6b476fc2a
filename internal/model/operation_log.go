package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 操作类型
const (
	OpCreateDraft          = "create_draft"
	OpSaveContent          = "save_content"
	OpSubmit               = "submit"
	OpUnlock               = "unlock"
	OpTriggerAI            = "trigger_ai"
	OpAIScored             = "ai_scored"
	OpReuseAIScore         = "reuse_ai_score"
	OpAIScoreFailed        = "ai_score_failed"
	OpRejectAnomaly        = "reject_anomaly"
	OpCorrectAnomaly       = "correct_anomaly"
	OpManualScore          = "manual_score"
	OpFinalize             = "finalize"
	OpApprove              = "approve"
	OpReject               = "reject"
	OpResubmitToPresident  = "resubmit_to_president"
	OpPublish              = "publish"
	OpDistribute           = "distribute"
	OpUploadAttachment     = "upload_attachment"
	OpDeleteAttachment     = "delete_attachment"
	OpReclassifyAttachment = "reclassify_attachment"
	OpSync                 = "sync"
	OpSyncRetry            = "sync_retry"
	OpSyncIngest           = "sync_ingest"
	OpRegenerateInsight    = "regenerate_insight"
)

// 目标类型
const (
	TargetEvaluation  = "evaluation"
	TargetAnomaly     = "anomaly"
	TargetAttachment  = "attachment"
	TargetApproval    = "approval"
	TargetPublication = "publication"
	TargetSyncTask    = "sync_task"
	TargetAITask      = "ai_scoring_task"
)

// OperationLog 操作审计日志 — 对应 operation_logs，只追加
type OperationLog struct {
	immutableRecord

	ID            string         `gorm:"type:uuid;primaryKey"             json:"id"`
	OperationType string         `gorm:"type:varchar(40);not null;index"  json:"operation_type"`
	OperatorID    string         `gorm:"type:varchar(64);not null;index"  json:"operator_id"`
	OperatorName  string         `gorm:"type:varchar(100);not null"       json:"operator_name"`
	OperatorRole  string         `gorm:"type:varchar(30);not null"        json:"operator_role"`
	TargetID      string         `gorm:"type:varchar(64);not null;index"  json:"target_id"`
	TargetType    string         `gorm:"type:varchar(30);not null;index"  json:"target_type"`
	Details       datatypes.JSON `json:"details"`
	OperatedAt    time.Time      `gorm:"not null;index"                   json:"operated_at"`
}

// TableName 指定表名
func (OperationLog) TableName() string { return "operation_logs" }

func (l *OperationLog) BeforeCreate(_ *gorm.DB) error {
	newID(&l.ID)
	if l.OperatedAt.IsZero() {
		l.OperatedAt = time.Now().UTC()
	}
	if len(l.Details) == 0 {
		l.Details = datatypes.JSON("{}")
	}
	return nil
}
