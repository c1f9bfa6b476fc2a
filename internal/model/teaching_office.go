package model

import "gorm.io/gorm"

// TeachingOffice 教研室 — 对应 teaching_offices
type TeachingOffice struct {
	ID         string  `gorm:"type:uuid;primaryKey"                  json:"id"`
	Name       string  `gorm:"type:varchar(100);not null"            json:"name"`
	Code       string  `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Department *string `gorm:"type:varchar(100)"                     json:"department,omitempty"`
	CollegeID  *string `gorm:"type:uuid"                             json:"college_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (TeachingOffice) TableName() string { return "teaching_offices" }

func (t *TeachingOffice) BeforeCreate(_ *gorm.DB) error {
	newID(&t.ID)
	return nil
}
