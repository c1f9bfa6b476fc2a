package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// PublicationRepository 公示记录访问接口
type PublicationRepository interface {
	// Create 写入公示及明细；任一评估已在其他公示中时返回唯一约束冲突
	Create(ctx context.Context, p *model.Publication) error
	GetByID(ctx context.Context, id string) (*model.Publication, error)
	// GetForUpdate 行级锁读取（SQLite 下忽略锁子句）
	GetForUpdate(ctx context.Context, id string) (*model.Publication, error)
	List(ctx context.Context, offset, limit int) ([]model.Publication, int64, error)
	// MarkDistributed 仅当尚未分发时写入 distributed_at
	MarkDistributed(ctx context.Context, p *model.Publication, by string, at time.Time) error
	FindByEvaluation(ctx context.Context, evaluationID string) (*model.Publication, error)
}

type publicationRepo struct {
	db *gorm.DB
}

// NewPublicationRepo 创建 PublicationRepository 实例
func NewPublicationRepo(db *gorm.DB) PublicationRepository {
	return &publicationRepo{db: db}
}

func (r *publicationRepo) Create(ctx context.Context, p *model.Publication) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		items := make([]model.PublicationItem, 0, len(p.EvaluationIDs))
		for _, id := range p.EvaluationIDs {
			items = append(items, model.PublicationItem{PublicationID: p.ID, EvaluationID: id})
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *publicationRepo) GetByID(ctx context.Context, id string) (*model.Publication, error) {
	var p model.Publication
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *publicationRepo) GetForUpdate(ctx context.Context, id string) (*model.Publication, error) {
	var p model.Publication
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *publicationRepo) List(ctx context.Context, offset, limit int) ([]model.Publication, int64, error) {
	var list []model.Publication
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Publication{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("published_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *publicationRepo) MarkDistributed(ctx context.Context, p *model.Publication, by string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Publication{}).
		Where("id = ? AND distributed_at IS NULL", p.ID).
		Updates(map[string]interface{}{
			"distributed_at": at,
			"distributed_by": by,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.ErrInvalidTransition, "该公示已分发")
	}
	p.DistributedAt = &at
	p.DistributedBy = &by
	return nil
}

func (r *publicationRepo) FindByEvaluation(ctx context.Context, evaluationID string) (*model.Publication, error) {
	var item model.PublicationItem
	if err := r.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).First(&item).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, item.PublicationID)
}
