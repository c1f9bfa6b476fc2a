package scoring

import (
	"fmt"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// DetectAnomalies 比较四类亮点的申报数量与 AI 解析数量，不一致时生成待处理异常
func DetectAnomalies(evaluationID string, content *model.EvaluationContent, ai *model.AIScore) []model.Anomaly {
	var out []model.Anomaly
	for _, cat := range content.Highlights.Categories() {
		declared := len(cat.Items)
		parsed := ai.ParsedCount(cat.Indicator)
		if declared == parsed {
			continue
		}
		d, p := declared, parsed
		out = append(out, model.Anomaly{
			EvaluationID:  evaluationID,
			Type:          model.AnomalyTypeCountMismatch,
			Indicator:     cat.Indicator,
			DeclaredCount: &d,
			ParsedCount:   &p,
			Description:   describeMismatch(cat.Indicator, declared, parsed),
			Status:        model.AnomalyPending,
		})
	}
	return out
}

func describeMismatch(indicator string, declared, parsed int) string {
	word, diff := "missing", declared-parsed
	if diff < 0 {
		word, diff = "surplus", -diff
	}
	return fmt.Sprintf("declared %d of %s, parsed %d; %s %d（%s 申报 %d 项，附件解析 %d 项）",
		declared, indicator, parsed, word, diff, model.IndicatorDisplayName(indicator), declared, parsed)
}
