package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// UploadRepository 分片上传会话访问接口
type UploadRepository interface {
	CreateSession(ctx context.Context, s *model.UploadSession) error
	GetSession(ctx context.Context, id string) (*model.UploadSession, error)
	// AddChunk 重复上传同一分片时保持幂等
	AddChunk(ctx context.Context, c *model.UploadChunk) error
	ListChunkIndexes(ctx context.Context, uploadID string) ([]int, error)
	// SwapStatus 条件更新会话状态，返回是否命中
	SwapStatus(ctx context.Context, id string, from, to model.UploadStatus) (bool, error)
	DeleteSession(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time) ([]model.UploadSession, error)
}

type uploadRepo struct {
	db *gorm.DB
}

// NewUploadRepo 创建 UploadRepository 实例
func NewUploadRepo(db *gorm.DB) UploadRepository {
	return &uploadRepo{db: db}
}

func (r *uploadRepo) CreateSession(ctx context.Context, s *model.UploadSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *uploadRepo) GetSession(ctx context.Context, id string) (*model.UploadSession, error) {
	var s model.UploadSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *uploadRepo) AddChunk(ctx context.Context, c *model.UploadChunk) error {
	if c.ReceivedAt.IsZero() {
		c.ReceivedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "upload_id"}, {Name: "chunk_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"size", "received_at"}),
		}).
		Create(c).Error
}

func (r *uploadRepo) ListChunkIndexes(ctx context.Context, uploadID string) ([]int, error) {
	var idx []int
	err := r.db.WithContext(ctx).
		Model(&model.UploadChunk{}).
		Where("upload_id = ?", uploadID).
		Order("chunk_index ASC").
		Pluck("chunk_index", &idx).Error
	return idx, err
}

func (r *uploadRepo) SwapStatus(ctx context.Context, id string, from, to model.UploadStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.UploadSession{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected == 1, result.Error
}

func (r *uploadRepo) DeleteSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", id).Delete(&model.UploadChunk{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.UploadSession{}).Error
	})
}

func (r *uploadRepo) ListExpired(ctx context.Context, now time.Time) ([]model.UploadSession, error) {
	var list []model.UploadSession
	err := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Find(&list).Error
	return list, err
}
