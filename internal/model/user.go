package model

import "gorm.io/gorm"

// User 用户表 — 对应 users
// 角色在开通后不可变更
type User struct {
	ID               string  `gorm:"type:uuid;primaryKey"                   json:"id"`
	Username         string  `gorm:"type:varchar(50);not null;uniqueIndex"  json:"username"`
	PasswordHash     string  `gorm:"type:varchar(255);not null"             json:"-"`
	Role             Role    `gorm:"type:varchar(30);not null"              json:"role"`
	TeachingOfficeID *string `gorm:"type:uuid;index"                        json:"teaching_office_id,omitempty"`
	CollegeID        *string `gorm:"type:uuid"                              json:"college_id,omitempty"`
	Name             string  `gorm:"type:varchar(100);not null"             json:"name"`
	Email            *string `gorm:"type:varchar(255)"                      json:"email,omitempty"`
	BaseModel

	// 关联
	TeachingOffice *TeachingOffice `gorm:"foreignKey:TeachingOfficeID;references:ID" json:"teaching_office,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	newID(&u.ID)
	return nil
}
