// Package testutil 提供测试用的 SQLite 内存数据库与种子数据
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// NewDB 每个测试独立的共享缓存内存库，测试结束自动关闭
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	// 单连接：事务与普通查询串行，避免 SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Fixture 测试基础数据
type Fixture struct {
	Office    *model.TeachingOffice
	Other     *model.TeachingOffice
	Director  *model.User // 教研室主任
	Team      *model.User // 考评小组
	Team2     *model.User
	Office2   *model.User // 考评办公室
	President *model.User // 校长办公室
}

// Seed 写入两个教研室与各角色用户
func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()

	f := &Fixture{
		Office: &model.TeachingOffice{Name: "计算机基础教研室", Code: "CS01"},
		Other:  &model.TeachingOffice{Name: "数学教研室", Code: "MA01"},
	}
	mustCreate(t, db, f.Office)
	mustCreate(t, db, f.Other)

	f.Director = &model.User{Username: "director", Name: "张主任", Role: model.RoleTeachingOffice, TeachingOfficeID: &f.Office.ID, PasswordHash: "x"}
	f.Team = &model.User{Username: "team1", Name: "李评审", Role: model.RoleEvaluationTeam, PasswordHash: "x"}
	f.Team2 = &model.User{Username: "team2", Name: "王评审", Role: model.RoleEvaluationTeam, PasswordHash: "x"}
	f.Office2 = &model.User{Username: "office", Name: "赵老师", Role: model.RoleEvaluationOffice, PasswordHash: "x"}
	f.President = &model.User{Username: "president", Name: "校长办", Role: model.RolePresidentOffice, PasswordHash: "x"}
	for _, u := range []*model.User{f.Director, f.Team, f.Team2, f.Office2, f.President} {
		mustCreate(t, db, u)
	}
	return f
}

// Actor 由用户构造调用者
func Actor(u *model.User) model.Actor {
	office := ""
	if u.TeachingOfficeID != nil {
		office = *u.TeachingOfficeID
	}
	return model.NewActor(u.ID, u.Name, u.Role, office)
}

func mustCreate(t testing.TB, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("写入种子数据失败: %v", err)
	}
}
