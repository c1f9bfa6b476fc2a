package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// TeachingOfficeRepository 教研室数据访问接口
type TeachingOfficeRepository interface {
	Create(ctx context.Context, office *model.TeachingOffice) error
	GetByID(ctx context.Context, id string) (*model.TeachingOffice, error)
	GetByCode(ctx context.Context, code string) (*model.TeachingOffice, error)
	List(ctx context.Context) ([]model.TeachingOffice, error)
}

type teachingOfficeRepo struct {
	db *gorm.DB
}

// NewTeachingOfficeRepo 创建 TeachingOfficeRepository 实例
func NewTeachingOfficeRepo(db *gorm.DB) TeachingOfficeRepository {
	return &teachingOfficeRepo{db: db}
}

func (r *teachingOfficeRepo) Create(ctx context.Context, office *model.TeachingOffice) error {
	return r.db.WithContext(ctx).Create(office).Error
}

func (r *teachingOfficeRepo) GetByID(ctx context.Context, id string) (*model.TeachingOffice, error) {
	var office model.TeachingOffice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&office).Error; err != nil {
		return nil, err
	}
	return &office, nil
}

func (r *teachingOfficeRepo) GetByCode(ctx context.Context, code string) (*model.TeachingOffice, error) {
	var office model.TeachingOffice
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&office).Error; err != nil {
		return nil, err
	}
	return &office, nil
}

func (r *teachingOfficeRepo) List(ctx context.Context) ([]model.TeachingOffice, error) {
	var offices []model.TeachingOffice
	err := r.db.WithContext(ctx).Order("code ASC").Find(&offices).Error
	return offices, err
}
