package model

import (
	"time"

	"gorm.io/gorm"
)

// ClassifiedBy 附件指标归类来源
type ClassifiedBy string

const (
	ClassifiedByUser ClassifiedBy = "user"
	ClassifiedByAI   ClassifiedBy = "ai"
)

// Attachment 自评佐证附件 — 对应 attachments
// 文件字节存放于对象存储，本表仅保存元数据；所属教研室经 evaluation 推导
type Attachment struct {
	ID           string       `gorm:"type:uuid;primaryKey"                        json:"id"`
	EvaluationID string       `gorm:"type:uuid;not null;index"                    json:"evaluation_id"`
	Indicator    string       `gorm:"type:varchar(64);not null;index"             json:"indicator"`
	FileName     string       `gorm:"type:varchar(255);not null"                  json:"file_name"`
	FileSize     int64        `gorm:"not null"                                    json:"file_size"`
	FileType     string       `gorm:"type:varchar(100);not null"                  json:"file_type"`
	StoragePath  string       `gorm:"type:varchar(500);not null;uniqueIndex"      json:"storage_path"`
	ClassifiedBy ClassifiedBy `gorm:"type:varchar(10);not null;default:'user'"    json:"classified_by"`
	UploadedBy   string       `gorm:"type:uuid"                                   json:"uploaded_by,omitempty"`
	UploadedAt   time.Time    `gorm:"not null"                                    json:"uploaded_at"`
	IsArchived   bool         `gorm:"not null;default:false"                      json:"is_archived"`
	ArchivedAt   *time.Time   `json:"archived_at,omitempty"`
}

// TableName 指定表名
func (Attachment) TableName() string { return "attachments" }

func (a *Attachment) BeforeCreate(_ *gorm.DB) error {
	newID(&a.ID)
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	if a.ClassifiedBy == "" {
		a.ClassifiedBy = ClassifiedByUser
	}
	return nil
}
