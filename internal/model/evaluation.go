package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EvaluationStatus 评估记录状态
type EvaluationStatus string

const (
	StatusDraft               EvaluationStatus = "draft"
	StatusSubmitted           EvaluationStatus = "submitted"
	StatusLocked              EvaluationStatus = "locked"
	StatusRejected            EvaluationStatus = "rejected"
	StatusAIScored            EvaluationStatus = "ai_scored"
	StatusManuallyScored      EvaluationStatus = "manually_scored"
	StatusFinalized           EvaluationStatus = "finalized"
	StatusApproved            EvaluationStatus = "approved"
	StatusRejectedByPresident EvaluationStatus = "rejected_by_president"
	StatusPublished           EvaluationStatus = "published"
	StatusDistributed         EvaluationStatus = "distributed"
)

// AllStatuses 状态全集
var AllStatuses = []EvaluationStatus{
	StatusDraft, StatusSubmitted, StatusLocked, StatusRejected, StatusAIScored, StatusManuallyScored,
	StatusFinalized, StatusApproved, StatusRejectedByPresident, StatusPublished, StatusDistributed,
}

// Valid 判断是否为已知状态
func (s EvaluationStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Evaluation 教研室年度自评 — 对应 evaluations
// (teaching_office_id, year) 唯一；所有状态变更通过 version 乐观锁
type Evaluation struct {
	ID               string           `gorm:"type:uuid;primaryKey"                                        json:"id"`
	TeachingOfficeID string           `gorm:"type:uuid;not null;uniqueIndex:uq_evaluation_office_year"    json:"teaching_office_id"`
	Year             int              `gorm:"not null;uniqueIndex:uq_evaluation_office_year"              json:"year"`
	Content          datatypes.JSON   `gorm:"not null"                                                    json:"content"`
	Status           EvaluationStatus `gorm:"type:varchar(30);not null;default:'draft';index"             json:"status"`
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`
	Version          int              `gorm:"not null;default:1"                                          json:"version"`
	BaseModel

	// 关联
	TeachingOffice *TeachingOffice `gorm:"foreignKey:TeachingOfficeID;references:ID" json:"teaching_office,omitempty"`
}

// TableName 指定表名
func (Evaluation) TableName() string { return "evaluations" }

func (e *Evaluation) BeforeCreate(_ *gorm.DB) error {
	newID(&e.ID)
	if e.Version == 0 {
		e.Version = 1
	}
	return nil
}
