// Package president 与校长办公会之间的一次性数据同步：数据包、发送端与接收端校验
package president

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/checksum"
)

// 同步请求头
const (
	HeaderTaskID   = "X-Sync-Task-Id"
	HeaderChecksum = "X-Checksum"
)

// Package 同步数据包；Checksum 为除自身外全部内容的规范化 SHA-256
type Package struct {
	TaskID      string               `json:"task_id"`
	Source      string               `json:"source"`
	GeneratedAt checksum.Time        `json:"generated_at"`
	TotalCount  int                  `json:"total_count"`
	Evaluations []EvaluationSyncData `json:"evaluations"`
	Checksum    string               `json:"checksum"`
}

// EvaluationSyncData 单个评估的完整快照
type EvaluationSyncData struct {
	EvaluationID       string            `json:"evaluation_id"`
	TeachingOfficeID   string            `json:"teaching_office_id"`
	TeachingOfficeName string            `json:"teaching_office_name"`
	Year               int               `json:"year"`
	Status             string            `json:"status"`
	SubmittedAt        *checksum.Time    `json:"submitted_at"`
	Content            json.RawMessage   `json:"content"`
	AIScore            *AIScoreData      `json:"ai_score"`
	ManualScores       []ManualScoreData `json:"manual_scores"`
	FinalScore         *FinalScoreData   `json:"final_score"`
	Attachments        []AttachmentData  `json:"attachments"`
	Anomalies          []AnomalyData     `json:"anomalies"`
}

// AIScoreData AI 评分快照
type AIScoreData struct {
	TotalScore           float64                `json:"total_score"`
	IndicatorScores      []model.IndicatorScore `json:"indicator_scores"`
	ParsedReformProjects int                    `json:"parsed_reform_projects"`
	ParsedHonors         int                    `json:"parsed_honors"`
	ParsedCompetitions   int                    `json:"parsed_competitions"`
	ParsedInnovations    int                    `json:"parsed_innovations"`
	ScoredAt             checksum.Time          `json:"scored_at"`
}

// ManualScoreData 人工评分快照
type ManualScoreData struct {
	ReviewerID   string                 `json:"reviewer_id"`
	ReviewerName string                 `json:"reviewer_name"`
	ReviewerRole string                 `json:"reviewer_role"`
	Weight       float64                `json:"weight"`
	Scores       []model.IndicatorScore `json:"scores"`
	SubmittedAt  checksum.Time          `json:"submitted_at"`
}

// FinalScoreData 最终得分快照
type FinalScoreData struct {
	FinalScore   float64       `json:"final_score"`
	Summary      string        `json:"summary"`
	DeterminedBy string        `json:"determined_by"`
	DeterminedAt checksum.Time `json:"determined_at"`
}

// AttachmentData 附件元数据快照
type AttachmentData struct {
	ID           string        `json:"id"`
	Indicator    string        `json:"indicator"`
	FileName     string        `json:"file_name"`
	FileSize     int64         `json:"file_size"`
	FileType     string        `json:"file_type"`
	StoragePath  string        `json:"storage_path"`
	ClassifiedBy string        `json:"classified_by"`
	UploadedAt   checksum.Time `json:"uploaded_at"`
}

// AnomalyData 异常快照
type AnomalyData struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Indicator     string  `json:"indicator"`
	DeclaredCount *int    `json:"declared_count"`
	ParsedCount   *int    `json:"parsed_count"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	HandledAction *string `json:"handled_action"`
}

// Snapshot 组装单个评估的同步数据；列表字段始终为 [] 而非 null
func Snapshot(
	e *model.Evaluation,
	officeName string,
	ai *model.AIScore,
	manual []model.ManualScore,
	final *model.FinalScore,
	atts []model.Attachment,
	anomalies []model.Anomaly,
) EvaluationSyncData {
	d := EvaluationSyncData{
		EvaluationID:       e.ID,
		TeachingOfficeID:   e.TeachingOfficeID,
		TeachingOfficeName: officeName,
		Year:               e.Year,
		Status:             string(e.Status),
		Content:            json.RawMessage(e.Content),
		ManualScores:       make([]ManualScoreData, 0, len(manual)),
		Attachments:        make([]AttachmentData, 0, len(atts)),
		Anomalies:          make([]AnomalyData, 0, len(anomalies)),
	}
	if e.SubmittedAt != nil {
		t := checksum.NewTime(*e.SubmittedAt)
		d.SubmittedAt = &t
	}
	if ai != nil {
		d.AIScore = &AIScoreData{
			TotalScore:           ai.TotalScore,
			IndicatorScores:      nonNilScores(ai.IndicatorScores),
			ParsedReformProjects: ai.ParsedReformProjects,
			ParsedHonors:         ai.ParsedHonors,
			ParsedCompetitions:   ai.ParsedCompetitions,
			ParsedInnovations:    ai.ParsedInnovations,
			ScoredAt:             checksum.NewTime(ai.ScoredAt),
		}
	}
	for _, m := range manual {
		d.ManualScores = append(d.ManualScores, ManualScoreData{
			ReviewerID:   m.ReviewerID,
			ReviewerName: m.ReviewerName,
			ReviewerRole: string(m.ReviewerRole),
			Weight:       m.Weight,
			Scores:       nonNilScores(m.Scores),
			SubmittedAt:  checksum.NewTime(m.SubmittedAt),
		})
	}
	if final != nil {
		d.FinalScore = &FinalScoreData{
			FinalScore:   final.FinalScore,
			Summary:      final.Summary,
			DeterminedBy: final.DeterminedBy,
			DeterminedAt: checksum.NewTime(final.DeterminedAt),
		}
	}
	for _, a := range atts {
		d.Attachments = append(d.Attachments, AttachmentData{
			ID:           a.ID,
			Indicator:    a.Indicator,
			FileName:     a.FileName,
			FileSize:     a.FileSize,
			FileType:     a.FileType,
			StoragePath:  a.StoragePath,
			ClassifiedBy: string(a.ClassifiedBy),
			UploadedAt:   checksum.NewTime(a.UploadedAt),
		})
	}
	for _, an := range anomalies {
		var action *string
		if an.HandledAction != nil {
			s := string(*an.HandledAction)
			action = &s
		}
		d.Anomalies = append(d.Anomalies, AnomalyData{
			ID:            an.ID,
			Type:          an.Type,
			Indicator:     an.Indicator,
			DeclaredCount: an.DeclaredCount,
			ParsedCount:   an.ParsedCount,
			Description:   an.Description,
			Status:        string(an.Status),
			HandledAction: action,
		})
	}
	return d
}

func nonNilScores(s []model.IndicatorScore) []model.IndicatorScore {
	if s == nil {
		return []model.IndicatorScore{}
	}
	return s
}

// Incomplete 返回缺失的必需部分；为空表示可同步
func (d *EvaluationSyncData) Incomplete() []string {
	var missing []string
	if len(d.Content) == 0 || string(d.Content) == "null" {
		missing = append(missing, "content")
	}
	if d.AIScore == nil {
		missing = append(missing, "ai_score")
	}
	if len(d.ManualScores) == 0 {
		missing = append(missing, "manual_scores")
	}
	if d.FinalScore == nil {
		missing = append(missing, "final_score")
	}
	return missing
}

// IncompleteError 用于累积到任务的 error_message
func (d *EvaluationSyncData) IncompleteError() error {
	missing := d.Incomplete()
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("评估 %s 数据不完整，缺少 %s", d.EvaluationID, strings.Join(missing, ", "))
}

// Build 组装数据包并计算校验和，返回数据包与待发送的请求体
func Build(taskID, source string, now time.Time, evaluations []EvaluationSyncData) (*Package, []byte, error) {
	if evaluations == nil {
		evaluations = []EvaluationSyncData{}
	}
	p := &Package{
		TaskID:      taskID,
		Source:      source,
		GeneratedAt: checksum.NewTime(now),
		TotalCount:  len(evaluations),
		Evaluations: evaluations,
	}
	sum, err := checksum.Compute(p)
	if err != nil {
		return nil, nil, err
	}
	p.Checksum = sum

	body, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("序列化同步数据包失败: %w", err)
	}
	return p, body, nil
}
