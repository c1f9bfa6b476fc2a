package model

import (
	"time"

	"gorm.io/gorm"
)

// UploadStatus 分片上传会话状态
type UploadStatus string

const (
	UploadInProgress UploadStatus = "uploading"
	UploadCompleted  UploadStatus = "completed"
)

// UploadSession 分片上传会话 — 对应 upload_sessions，过期后由定时任务清理
type UploadSession struct {
	ID           string       `gorm:"type:uuid;primaryKey"              json:"upload_id"`
	EvaluationID string       `gorm:"type:uuid;not null;index"          json:"evaluation_id"`
	Indicator    string       `gorm:"type:varchar(64);not null"         json:"indicator"`
	FileName     string       `gorm:"type:varchar(255);not null"        json:"file_name"`
	FileSize     int64        `gorm:"not null"                          json:"file_size"`
	FileType     string       `gorm:"type:varchar(100);not null"        json:"file_type"`
	ChunkSize    int64        `gorm:"not null"                          json:"chunk_size"`
	TotalChunks  int          `gorm:"not null"                          json:"total_chunks"`
	Status       UploadStatus `gorm:"type:varchar(10);not null"         json:"status"`
	CreatedBy    string       `gorm:"type:uuid;not null"                json:"created_by"`
	ExpiresAt    time.Time    `gorm:"not null;index"                    json:"expires_at"`
	CreatedAt    time.Time    `gorm:"not null"                          json:"created_at"`

	Chunks []UploadChunk `gorm:"foreignKey:UploadID;references:ID" json:"-"`
}

// TableName 指定表名
func (UploadSession) TableName() string { return "upload_sessions" }

func (s *UploadSession) BeforeCreate(_ *gorm.DB) error {
	newID(&s.ID)
	if s.Status == "" {
		s.Status = UploadInProgress
	}
	return nil
}

// UploadChunk 已接收的分片 — (upload_id, chunk_index) 唯一
type UploadChunk struct {
	UploadID   string    `gorm:"type:uuid;primaryKey"  json:"upload_id"`
	ChunkIndex int       `gorm:"primaryKey"            json:"chunk_index"`
	Size       int64     `gorm:"not null"              json:"size"`
	ReceivedAt time.Time `gorm:"not null"              json:"received_at"`
}

// TableName 指定表名
func (UploadChunk) TableName() string { return "upload_chunks" }
