package model

import (
	"time"

	"gorm.io/gorm"
)

// InsightSummary 评估洞察摘要 — 每个评估唯一，重新生成时原地覆盖
type InsightSummary struct {
	ID           string    `gorm:"type:uuid;primaryKey"           json:"id"`
	EvaluationID string    `gorm:"type:uuid;not null;uniqueIndex" json:"evaluation_id"`
	Summary      string    `gorm:"type:text;not null"             json:"summary"`
	GeneratedAt  time.Time `gorm:"not null"                       json:"generated_at"`
}

// TableName 指定表名
func (InsightSummary) TableName() string { return "insight_summaries" }

func (s *InsightSummary) BeforeCreate(_ *gorm.DB) error {
	newID(&s.ID)
	return nil
}
