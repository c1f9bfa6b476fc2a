package scoring

import (
	"encoding/json"
	"strings"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// Classification AI 给出的附件归类
type Classification struct {
	FileName  string `json:"file_name"`
	Indicator string `json:"indicator"`
}

// AIResult 解析后的 AI 评分结果
type AIResult struct {
	TotalScore                float64
	IndicatorScores           []model.IndicatorScore
	ParsedReformProjects      int
	ParsedHonors              int
	ParsedCompetitions        int
	ParsedInnovations         int
	AttachmentClassifications []Classification
}

type rawResult struct {
	TotalScore                *float64               `json:"total_score"`
	IndicatorScores           []model.IndicatorScore `json:"indicator_scores"`
	ParsedReformProjects      int                    `json:"parsed_reform_projects"`
	ParsedHonors              int                    `json:"parsed_honors"`
	ParsedCompetitions        int                    `json:"parsed_competitions"`
	ParsedInnovations         int                    `json:"parsed_innovations"`
	AttachmentClassifications []struct {
		FileName  string `json:"file_name"`
		Filename  string `json:"filename"`
		Indicator string `json:"indicator"`
	} `json:"attachment_classifications"`
}

// ParseAIResponse 解析 AI 返回文本
// 非严格 JSON 时截取最长的 {...} 子串再次解析；仍失败返回 ErrBadAIResponse
func ParseAIResponse(text string) (*AIResult, error) {
	raw, err := decode(strings.TrimSpace(text))
	if err != nil {
		sub, ok := longestObject(text)
		if !ok {
			return nil, pkgerrors.Wrap(pkgerrors.ErrBadAIResponse, "AI 返回结果不是 JSON", err)
		}
		if raw, err = decode(sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrBadAIResponse, "AI 返回结果无法解析为 JSON", err)
		}
	}

	if raw.TotalScore == nil {
		return nil, pkgerrors.New(pkgerrors.ErrBadAIResponse, "AI 返回结果缺少 total_score")
	}
	if raw.ParsedReformProjects < 0 || raw.ParsedHonors < 0 || raw.ParsedCompetitions < 0 || raw.ParsedInnovations < 0 {
		return nil, pkgerrors.New(pkgerrors.ErrBadAIResponse, "AI 返回的解析数量不能为负数")
	}

	res := &AIResult{
		TotalScore:           *raw.TotalScore,
		IndicatorScores:      make([]model.IndicatorScore, 0, len(raw.IndicatorScores)),
		ParsedReformProjects: raw.ParsedReformProjects,
		ParsedHonors:         raw.ParsedHonors,
		ParsedCompetitions:   raw.ParsedCompetitions,
		ParsedInnovations:    raw.ParsedInnovations,
	}
	for _, s := range raw.IndicatorScores {
		s.Indicator = model.NormalizeIndicator(strings.TrimSpace(s.Indicator))
		res.IndicatorScores = append(res.IndicatorScores, s)
	}
	for _, c := range raw.AttachmentClassifications {
		name := c.FileName
		if name == "" {
			name = c.Filename
		}
		res.AttachmentClassifications = append(res.AttachmentClassifications, Classification{
			FileName:  strings.TrimSpace(name),
			Indicator: strings.TrimSpace(c.Indicator),
		})
	}
	return res, nil
}

func decode(s string) (*rawResult, error) {
	var r rawResult
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// longestObject 第一个 '{' 到最后一个 '}' 之间的子串
func longestObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ── 附件归类 ──

// Reclassification 附件归类变更
type Reclassification struct {
	AttachmentID string
	FileName     string
	From         string
	To           string
}

// Reclassify 按文件名匹配 AI 归类；无法识别的目标指标忽略，附件保留原归类
func Reclassify(attachments []model.Attachment, classes []Classification) []Reclassification {
	byName := make(map[string]string, len(classes))
	for _, c := range classes {
		target := model.NormalizeIndicator(c.Indicator)
		if c.FileName == "" || !model.IsKnownIndicator(target) {
			continue
		}
		byName[c.FileName] = target
	}

	var out []Reclassification
	for _, a := range attachments {
		target, ok := byName[a.FileName]
		if !ok {
			continue
		}
		if target == a.Indicator && a.ClassifiedBy == model.ClassifiedByAI {
			continue
		}
		out = append(out, Reclassification{AttachmentID: a.ID, FileName: a.FileName, From: a.Indicator, To: target})
	}
	return out
}
