package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// SyncTaskRepository 同步任务访问接口
type SyncTaskRepository interface {
	Create(ctx context.Context, t *model.SyncTask) error
	GetByID(ctx context.Context, id string) (*model.SyncTask, error)
	List(ctx context.Context, status model.SyncStatus, offset, limit int) ([]model.SyncTask, int64, error)
	// Finish 仅当任务仍在 syncing 时写入结果；任务已被判定放弃时返回 false
	Finish(ctx context.Context, t *model.SyncTask) (bool, error)
	// Restart 将 failed 任务重置为 syncing；任务不是 failed 时返回 false
	Restart(ctx context.Context, t *model.SyncTask) (bool, error)
	// MarkStaleFailed 将 started_at 早于 before 且仍在 syncing 的任务置为 failed，返回条数
	MarkStaleFailed(ctx context.Context, before time.Time, message string) (int64, error)
}

type syncTaskRepo struct {
	db *gorm.DB
}

// NewSyncTaskRepo 创建 SyncTaskRepository 实例
func NewSyncTaskRepo(db *gorm.DB) SyncTaskRepository {
	return &syncTaskRepo{db: db}
}

func (r *syncTaskRepo) Create(ctx context.Context, t *model.SyncTask) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *syncTaskRepo) GetByID(ctx context.Context, id string) (*model.SyncTask, error) {
	var t model.SyncTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *syncTaskRepo) List(ctx context.Context, status model.SyncStatus, offset, limit int) ([]model.SyncTask, int64, error) {
	var list []model.SyncTask
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SyncTask{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("started_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *syncTaskRepo) MarkStaleFailed(ctx context.Context, before time.Time, message string) (int64, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.SyncTask{}).
		Where("status = ? AND started_at < ?", model.SyncSyncing, before).
		Updates(map[string]interface{}{
			"status":        model.SyncFailed,
			"error_message": message,
			"completed_at":  now,
		})
	return result.RowsAffected, result.Error
}

func (r *syncTaskRepo) Finish(ctx context.Context, t *model.SyncTask) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SyncTask{}).
		Where("id = ? AND status = ?", t.ID, model.SyncSyncing).
		Updates(map[string]interface{}{
			"status":        t.Status,
			"synced_count":  t.SyncedCount,
			"failed_count":  t.FailedCount,
			"completed_at":  t.CompletedAt,
			"error_message": t.ErrorMessage,
			"retry_count":   t.RetryCount,
			"checksum":      t.Checksum,
			"sync_data":     t.SyncData,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *syncTaskRepo) Restart(ctx context.Context, t *model.SyncTask) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.SyncTask{}).
		Where("id = ? AND status = ?", t.ID, model.SyncFailed).
		Updates(map[string]interface{}{
			"status":        model.SyncSyncing,
			"synced_count":  0,
			"failed_count":  0,
			"started_at":    now,
			"completed_at":  nil,
			"error_message": nil,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		return false, result.Error
	}
	t.Status = model.SyncSyncing
	t.SyncedCount, t.FailedCount = 0, 0
	t.StartedAt = now
	t.CompletedAt = nil
	t.ErrorMessage = nil
	return true, nil
}
