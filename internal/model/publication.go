package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publication 结果公示 — 对应 publications
// distributed_at 为空表示尚未分发
type Publication struct {
	ID            string                      `gorm:"type:uuid;primaryKey" json:"id"`
	EvaluationIDs datatypes.JSONSlice[string] `gorm:"not null"             json:"evaluation_ids"`
	PublishedBy   string                      `gorm:"type:uuid;not null"   json:"published_by"`
	PublishedAt   time.Time                   `gorm:"not null;index"       json:"published_at"`
	DistributedAt *time.Time                  `json:"distributed_at,omitempty"`
	DistributedBy *string                     `gorm:"type:uuid"            json:"distributed_by,omitempty"`
}

// TableName 指定表名
func (Publication) TableName() string { return "publications" }

func (p *Publication) BeforeCreate(_ *gorm.DB) error {
	newID(&p.ID)
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now().UTC()
	}
	return nil
}

// PublicationItem 公示明细 — evaluation_id 唯一，保证一个评估只出现在一次公示中
type PublicationItem struct {
	PublicationID string `gorm:"type:uuid;primaryKey"             json:"publication_id"`
	EvaluationID  string `gorm:"type:uuid;primaryKey;uniqueIndex" json:"evaluation_id"`
}

// TableName 指定表名
func (PublicationItem) TableName() string { return "publication_items" }
