package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncStatus 同步任务状态
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncSyncing   SyncStatus = "syncing"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncTask 向校长办公会同步的任务 — 对应 sync_tasks
type SyncTask struct {
	ID            string                      `gorm:"type:uuid;primaryKey"                  json:"id"`
	EvaluationIDs datatypes.JSONSlice[string] `gorm:"not null"                              json:"evaluation_ids"`
	Status        SyncStatus                  `gorm:"type:varchar(10);not null;index"       json:"status"`
	SyncedCount   int                         `gorm:"not null;default:0"                    json:"synced_count"`
	FailedCount   int                         `gorm:"not null;default:0"                    json:"failed_count"`
	TotalCount    int                         `gorm:"not null"                              json:"total_count"`
	StartedAt     time.Time                   `gorm:"not null;index"                        json:"started_at"`
	CompletedAt   *time.Time                  `json:"completed_at,omitempty"`
	ErrorMessage  *string                     `gorm:"type:text"                             json:"error_message,omitempty"`
	RetryCount    int                         `gorm:"not null;default:0"                    json:"retry_count"`
	Checksum      *string                     `gorm:"type:varchar(64)"                      json:"checksum,omitempty"`
	SyncData      datatypes.JSON              `json:"-"`
	CreatedBy     string                      `gorm:"type:uuid;not null"                    json:"created_by"`
}

// TableName 指定表名
func (SyncTask) TableName() string { return "sync_tasks" }

func (t *SyncTask) BeforeCreate(_ *gorm.DB) error {
	newID(&t.ID)
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now().UTC()
	}
	return nil
}
