// Package seed 从 YAML 文件初始化教研室与账号（幂等：已存在的记录跳过）
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
)

// File 种子文件结构
type File struct {
	Offices []Office `yaml:"offices"`
	Users   []User   `yaml:"users"`
}

// Office 教研室
type Office struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Department string `yaml:"department"`
}

// User 账号；office 引用 Office.Code，仅教研室角色需要
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Office   string `yaml:"office"`
}

// Result 导入统计
type Result struct {
	OfficesCreated int
	UsersCreated   int
	Skipped        int
}

// Parse 解析并校验种子文件
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}

	codes := make(map[string]bool, len(f.Offices))
	for i, o := range f.Offices {
		if o.Code == "" || o.Name == "" {
			return nil, fmt.Errorf("offices[%d]: code 与 name 不能为空", i)
		}
		codes[o.Code] = true
	}
	for i, u := range f.Users {
		if u.Username == "" || u.Password == "" || u.Name == "" {
			return nil, fmt.Errorf("users[%d]: username、password、name 不能为空", i)
		}
		role := model.Role(u.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("users[%d]: 未知角色 %q", i, u.Role)
		}
		if role == model.RoleTeachingOffice {
			if u.Office == "" {
				return nil, fmt.Errorf("users[%d]: 教研室账号必须指定 office", i)
			}
			if !codes[u.Office] {
				return nil, fmt.Errorf("users[%d]: 未定义的教研室 %q", i, u.Office)
			}
		}
	}
	return &f, nil
}

// Apply 在单个事务内写入种子数据
func Apply(ctx context.Context, repo *repository.Repository, f *File, logger *zap.Logger) (*Result, error) {
	res := &Result{}
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		officeIDs := make(map[string]string, len(f.Offices))
		for _, o := range f.Offices {
			existing, err := tx.TeachingOffice.GetByCode(ctx, o.Code)
			switch {
			case err == nil:
				officeIDs[o.Code] = existing.ID
				res.Skipped++
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			office := &model.TeachingOffice{Code: o.Code, Name: o.Name}
			if o.Department != "" {
				dept := o.Department
				office.Department = &dept
			}
			if err := tx.TeachingOffice.Create(ctx, office); err != nil {
				return fmt.Errorf("创建教研室 %s 失败: %w", o.Code, err)
			}
			officeIDs[o.Code] = office.ID
			res.OfficesCreated++
		}

		for _, u := range f.Users {
			_, err := tx.User.GetByUsername(ctx, u.Username)
			switch {
			case err == nil:
				res.Skipped++
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("密码加密失败: %w", err)
			}
			user := &model.User{
				Username:     u.Username,
				PasswordHash: string(hash),
				Name:         u.Name,
				Role:         model.Role(u.Role),
			}
			if user.Role == model.RoleTeachingOffice {
				id := officeIDs[u.Office]
				user.TeachingOfficeID = &id
			}
			if err := tx.User.Create(ctx, user); err != nil {
				return fmt.Errorf("创建账号 %s 失败: %w", u.Username, err)
			}
			res.UsersCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("种子数据已导入",
		zap.Int("offices_created", res.OfficesCreated),
		zap.Int("users_created", res.UsersCreated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
