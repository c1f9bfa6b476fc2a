package dto

import "time"

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID             string                  `json:"id"`
	Username       string                  `json:"username"`
	Name           string                  `json:"name"`
	Email          string                  `json:"email,omitempty"`
	Role           string                  `json:"role"`
	TeachingOffice *TeachingOfficeResponse `json:"teaching_office,omitempty"`
	Capabilities   []string                `json:"capabilities"`
}

// TeachingOfficeResponse 教研室简要信息
type TeachingOfficeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// TaskAccepted 异步任务已受理
type TaskAccepted struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// FormatTime 统一输出 UTC RFC3339
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
