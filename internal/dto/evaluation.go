package dto

import (
	"encoding/json"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// ── 评估模块 DTO ──

// CreateEvaluationRequest 创建（或取回）年度草稿
type CreateEvaluationRequest struct {
	Year    int             `json:"year"    binding:"required,min=2000,max=2100"`
	Content json.RawMessage `json:"content"`
}

// SaveContentRequest 保存自评内容
type SaveContentRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
	Version *int            `json:"version"`
}

// TransitionRequest 无额外参数的状态操作（提交等），version 用于乐观锁校验
type TransitionRequest struct {
	Version *int `json:"version"`
}

// UnlockRequest 解锁请求
type UnlockRequest struct {
	Reason  string `json:"reason"  binding:"required,max=500"`
	Version *int   `json:"version"`
}

// EvaluationListRequest 评估列表筛选
type EvaluationListRequest struct {
	PaginationRequest
	Year             int    `form:"year"               binding:"omitempty,min=2000,max=2100"`
	Status           string `form:"status"`
	TeachingOfficeID string `form:"teaching_office_id" binding:"omitempty,uuid"`
}

// EvaluationDetail 评估详情
type EvaluationDetail struct {
	*model.Evaluation
	Attachments  []model.Attachment    `json:"attachments"`
	AIScore      *model.AIScore        `json:"ai_score,omitempty"`
	ManualScores []model.ManualScore   `json:"manual_scores"`
	FinalScore   *model.FinalScore     `json:"final_score,omitempty"`
	Anomalies    []model.Anomaly       `json:"anomalies"`
	Insight      *model.InsightSummary `json:"insight,omitempty"`
	Allowed      []string              `json:"allowed_operations"`
}

// TransitionRule 状态迁移规则（供客户端渲染操作按钮）
type TransitionRule struct {
	Operation string   `json:"operation"`
	From      []string `json:"from"`
	To        string   `json:"to"`
	Guard     string   `json:"guard"`
}
