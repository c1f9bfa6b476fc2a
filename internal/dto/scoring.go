package dto

import (
	"encoding/json"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// ── 评分与异常 DTO ──

// ManualScoreRequest 人工评分
type ManualScoreRequest struct {
	Scores  []IndicatorScoreInput `json:"scores"  binding:"required,min=1,dive"`
	Version *int                  `json:"version"`
}

// IndicatorScoreInput 单项得分输入
type IndicatorScoreInput struct {
	Indicator string  `json:"indicator" binding:"required"`
	Score     float64 `json:"score"     binding:"min=0"`
	Comment   string  `json:"comment"   binding:"max=1000"`
}

// FinalizeRequest 确定最终得分
type FinalizeRequest struct {
	FinalScore float64 `json:"final_score" binding:"min=0"`
	Summary    string  `json:"summary"     binding:"required,max=2000"`
	Version    *int    `json:"version"`
}

// ScoreSummary 评分汇总（含参考加权均值）
type ScoreSummary struct {
	EvaluationID string              `json:"evaluation_id"`
	AIScore      *model.AIScore      `json:"ai_score,omitempty"`
	ManualScores []model.ManualScore `json:"manual_scores"`
	FinalScore   *model.FinalScore   `json:"final_score,omitempty"`
	WeightedMean *float64            `json:"weighted_mean,omitempty"`
	AllowedMin   *float64            `json:"allowed_min,omitempty"`
	AllowedMax   *float64            `json:"allowed_max,omitempty"`
}

// HandleAnomalyRequest 处理异常：reject 需 reject_reason，correct 需 corrected_data
type HandleAnomalyRequest struct {
	Action        string          `json:"action"         binding:"required,oneof=reject correct"`
	RejectReason  string          `json:"reject_reason"  binding:"max=1000"`
	CorrectedData json.RawMessage `json:"corrected_data"`
	Note          string          `json:"note"           binding:"max=1000"`
	Version       *int            `json:"version"`
}
