package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User           UserRepository
	TeachingOffice TeachingOfficeRepository
	Evaluation     EvaluationRepository
	Attachment     AttachmentRepository
	Score          ScoreRepository
	Anomaly        AnomalyRepository
	Approval       ApprovalRepository
	Publication    PublicationRepository
	Insight        InsightRepository
	OperationLog   OperationLogRepository
	SyncTask       SyncTaskRepository
	AITask         AITaskRepository
	Upload         UploadRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		User:           NewUserRepo(db),
		TeachingOffice: NewTeachingOfficeRepo(db),
		Evaluation:     NewEvaluationRepo(db),
		Attachment:     NewAttachmentRepo(db),
		Score:          NewScoreRepo(db),
		Anomaly:        NewAnomalyRepo(db),
		Approval:       NewApprovalRepo(db),
		Publication:    NewPublicationRepo(db),
		Insight:        NewInsightRepo(db),
		OperationLog:   NewOperationLogRepo(db),
		SyncTask:       NewSyncTaskRepo(db),
		AITask:         NewAITaskRepo(db),
		Upload:         NewUploadRepo(db),
	}
}

// WithTx 返回绑定到事务 tx 的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在同一事务内执行 fn；fn 返回错误时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(r.WithTx(db))
	})
}

// DB 返回底层连接（健康检查使用）
func (r *Repository) DB() *gorm.DB { return r.db }
