package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IndicatorScore 单项指标得分
type IndicatorScore struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score,omitempty"`
	Comment   string  `json:"comment,omitempty"`
}

// ── 评分台账（写入后不可变） ──

// AIScore AI 评分 — 对应 ai_scores，每个评估至多一条
type AIScore struct {
	immutableRecord

	ID                   string                              `gorm:"type:uuid;primaryKey"               json:"id"`
	EvaluationID         string                              `gorm:"type:uuid;not null;uniqueIndex"     json:"evaluation_id"`
	TotalScore           float64                             `gorm:"type:numeric(7,2);not null"         json:"total_score"`
	IndicatorScores      datatypes.JSONSlice[IndicatorScore] `gorm:"not null"                           json:"indicator_scores"`
	ParsedReformProjects int                                 `gorm:"not null;default:0"                 json:"parsed_reform_projects"`
	ParsedHonors         int                                 `gorm:"not null;default:0"                 json:"parsed_honors"`
	ParsedCompetitions   int                                 `gorm:"not null;default:0"                 json:"parsed_competitions"`
	ParsedInnovations    int                                 `gorm:"not null;default:0"                 json:"parsed_innovations"`
	RawResponse          string                              `gorm:"type:text"                          json:"-"`
	ScoredAt             time.Time                           `gorm:"not null"                           json:"scored_at"`
}

// TableName 指定表名
func (AIScore) TableName() string { return "ai_scores" }

func (s *AIScore) BeforeCreate(_ *gorm.DB) error {
	newID(&s.ID)
	if s.ScoredAt.IsZero() {
		s.ScoredAt = time.Now().UTC()
	}
	return nil
}

// ParsedCount 按亮点类别取 AI 解析出的数量
func (s *AIScore) ParsedCount(indicator string) int {
	switch indicator {
	case IndicatorReformProjects:
		return s.ParsedReformProjects
	case IndicatorHonors:
		return s.ParsedHonors
	case IndicatorCompetitions:
		return s.ParsedCompetitions
	case IndicatorInnovations:
		return s.ParsedInnovations
	}
	return 0
}

// ManualScore 人工评分 — 对应 manual_scores，(evaluation_id, reviewer_id) 唯一
type ManualScore struct {
	immutableRecord

	ID           string                              `gorm:"type:uuid;primaryKey"                                    json:"id"`
	EvaluationID string                              `gorm:"type:uuid;not null;uniqueIndex:uq_manual_score_reviewer" json:"evaluation_id"`
	ReviewerID   string                              `gorm:"type:uuid;not null;uniqueIndex:uq_manual_score_reviewer" json:"reviewer_id"`
	ReviewerName string                              `gorm:"type:varchar(100);not null"                              json:"reviewer_name"`
	ReviewerRole Role                                `gorm:"type:varchar(30);not null"                               json:"reviewer_role"`
	Weight       float64                             `gorm:"type:numeric(4,2);not null"                              json:"weight"`
	Scores       datatypes.JSONSlice[IndicatorScore] `gorm:"not null"                                                json:"scores"`
	SubmittedAt  time.Time                           `gorm:"not null"                                                json:"submitted_at"`
}

// TableName 指定表名
func (ManualScore) TableName() string { return "manual_scores" }

func (s *ManualScore) BeforeCreate(_ *gorm.DB) error {
	newID(&s.ID)
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	return nil
}

// Total 评审人各指标得分之和
func (s *ManualScore) Total() float64 {
	var sum float64
	for _, sc := range s.Scores {
		sum += sc.Score
	}
	return sum
}

// FinalScore 最终得分 — 对应 final_scores，每个评估唯一
type FinalScore struct {
	immutableRecord

	ID           string    `gorm:"type:uuid;primaryKey"           json:"id"`
	EvaluationID string    `gorm:"type:uuid;not null;uniqueIndex" json:"evaluation_id"`
	FinalScore   float64   `gorm:"type:numeric(7,2);not null"     json:"final_score"`
	Summary      string    `gorm:"type:text;not null"             json:"summary"`
	DeterminedBy string    `gorm:"type:uuid;not null"             json:"determined_by"`
	DeterminedAt time.Time `gorm:"not null"                       json:"determined_at"`
	Version      int       `gorm:"not null;default:1"             json:"version"`
}

// TableName 指定表名
func (FinalScore) TableName() string { return "final_scores" }

func (s *FinalScore) BeforeCreate(_ *gorm.DB) error {
	newID(&s.ID)
	if s.DeterminedAt.IsZero() {
		s.DeterminedAt = time.Now().UTC()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
