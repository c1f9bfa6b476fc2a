package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApprovalDecision 校长办公会决定
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "approve"
	DecisionReject  ApprovalDecision = "reject"
)

// Approval 审定记录 — 对应 approvals
type Approval struct {
	ID            string                      `gorm:"type:uuid;primaryKey"         json:"id"`
	EvaluationIDs datatypes.JSONSlice[string] `gorm:"not null"                     json:"evaluation_ids"`
	Decision      ApprovalDecision            `gorm:"type:varchar(10);not null"    json:"decision"`
	RejectReason  *string                     `gorm:"type:text"                    json:"reject_reason,omitempty"`
	ApprovedBy    string                      `gorm:"type:uuid;not null"           json:"approved_by"`
	ApprovedAt    time.Time                   `gorm:"not null;index"               json:"approved_at"`
}

// TableName 指定表名
func (Approval) TableName() string { return "approvals" }

func (a *Approval) BeforeCreate(_ *gorm.DB) error {
	newID(&a.ID)
	if a.ApprovedAt.IsZero() {
		a.ApprovedAt = time.Now().UTC()
	}
	return nil
}

// Covers 是否包含指定评估
func (a *Approval) Covers(evaluationID string) bool {
	for _, id := range a.EvaluationIDs {
		if id == evaluationID {
			return true
		}
	}
	return false
}
