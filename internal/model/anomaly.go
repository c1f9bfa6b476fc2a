package model

import (
	"time"

	"gorm.io/gorm"
)

// AnomalyStatus 异常处理状态
type AnomalyStatus string

const (
	AnomalyPending AnomalyStatus = "pending"
	AnomalyHandled AnomalyStatus = "handled"
)

// AnomalyAction 异常处理动作
type AnomalyAction string

const (
	AnomalyActionReject  AnomalyAction = "reject"
	AnomalyActionCorrect AnomalyAction = "correct"
)

// AnomalyTypeCountMismatch 申报数量与解析数量不一致
const AnomalyTypeCountMismatch = "count_mismatch"

// Anomaly 评估异常 — 对应 anomalies
// handled 时 handled_by/handled_action/handled_at 必须同时非空；pending 时同时为空
type Anomaly struct {
	ID            string         `gorm:"type:uuid;primaryKey"                       json:"id"`
	EvaluationID  string         `gorm:"type:uuid;not null;index"                   json:"evaluation_id"`
	Type          string         `gorm:"type:varchar(30);not null"                  json:"type"`
	Indicator     string         `gorm:"type:varchar(64);not null"                  json:"indicator"`
	DeclaredCount *int           `json:"declared_count,omitempty"`
	ParsedCount   *int           `json:"parsed_count,omitempty"`
	Description   string         `gorm:"type:text;not null"                         json:"description"`
	Status        AnomalyStatus  `gorm:"type:varchar(10);not null;default:'pending'" json:"status"`
	HandledBy     *string        `gorm:"type:uuid"                                  json:"handled_by,omitempty"`
	HandledAction *AnomalyAction `gorm:"type:varchar(10)"                           json:"handled_action,omitempty"`
	HandledAt     *time.Time     `json:"handled_at,omitempty"`
	HandledNote   string         `gorm:"type:text"                                  json:"handled_note,omitempty"`
	CreatedAt     time.Time      `gorm:"not null"                                   json:"created_at"`
}

// TableName 指定表名
func (Anomaly) TableName() string { return "anomalies" }

func (a *Anomaly) BeforeCreate(_ *gorm.DB) error {
	newID(&a.ID)
	if a.Status == "" {
		a.Status = AnomalyPending
	}
	return nil
}

// WellFormed 处理字段与状态一致
func (a *Anomaly) WellFormed() bool {
	switch a.Status {
	case AnomalyHandled:
		return a.HandledBy != nil && a.HandledAction != nil && a.HandledAt != nil
	case AnomalyPending:
		return a.HandledBy == nil && a.HandledAction == nil && a.HandledAt == nil
	}
	return false
}
