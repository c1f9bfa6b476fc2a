package model

import (
	"time"

	"gorm.io/gorm"
)

// AITaskStatus AI 评分任务状态
type AITaskStatus string

const (
	AITaskPending   AITaskStatus = "pending"
	AITaskRunning   AITaskStatus = "running"
	AITaskCompleted AITaskStatus = "completed"
	AITaskFailed    AITaskStatus = "failed"
)

// AIScoringTask AI 评分后台任务 — 对应 ai_scoring_tasks
type AIScoringTask struct {
	ID           string       `gorm:"type:uuid;primaryKey"            json:"id"`
	EvaluationID string       `gorm:"type:uuid;not null;index"        json:"evaluation_id"`
	Status       AITaskStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	Attempts     int          `gorm:"not null;default:0"              json:"attempts"`
	ErrorMessage *string      `gorm:"type:text"                       json:"error_message,omitempty"`
	TriggeredBy  string       `gorm:"type:uuid;not null"              json:"triggered_by"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null"                        json:"created_at"`
}

// TableName 指定表名
func (AIScoringTask) TableName() string { return "ai_scoring_tasks" }

func (t *AIScoringTask) BeforeCreate(_ *gorm.DB) error {
	newID(&t.ID)
	if t.Status == "" {
		t.Status = AITaskPending
	}
	return nil
}
