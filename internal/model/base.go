package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// BaseModel 通用时间字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// newID 为空主键生成 UUID；PostgreSQL 侧另有 gen_random_uuid() 默认值
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ── 不可变记录 ──

// immutableRecord 嵌入后拦截 GORM 层面的 UPDATE / DELETE
// PostgreSQL 另有触发器兜底（见 pkg/database/migrations）
type immutableRecord struct{}

// BeforeUpdate GORM 钩子：拒绝更新
func (immutableRecord) BeforeUpdate(_ *gorm.DB) error {
	return pkgerrors.New(pkgerrors.ErrImmutable, "评分与审计记录写入后不可修改")
}

// BeforeDelete GORM 钩子：拒绝删除
func (immutableRecord) BeforeDelete(_ *gorm.DB) error {
	return pkgerrors.New(pkgerrors.ErrImmutable, "评分与审计记录写入后不可删除")
}

// AllModels 返回需要迁移的全部模型（测试 AutoMigrate 使用）
func AllModels() []interface{} {
	return []interface{}{
		&TeachingOffice{},
		&User{},
		&Evaluation{},
		&Attachment{},
		&AIScore{},
		&ManualScore{},
		&FinalScore{},
		&Anomaly{},
		&Approval{},
		&Publication{},
		&PublicationItem{},
		&InsightSummary{},
		&OperationLog{},
		&SyncTask{},
		&AIScoringTask{},
		&UploadSession{},
		&UploadChunk{},
	}
}
