package scoring

import (
	"fmt"
	"strings"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// SystemPrompt AI 评分的系统提示词
const SystemPrompt = "你是高校教研室年度工作考核评审专家。请依据教研室自评材料与佐证附件客观评分，" +
	"只输出一个严格的 JSON 对象，不要输出任何解释文字或 Markdown 代码块。"

// BuildPrompt 生成 AI 评分提示词
// 包含八项常规指标自评分、四类亮点数量、负面清单及附件当前归类
func BuildPrompt(content *model.EvaluationContent, attachments []model.Attachment) string {
	var b strings.Builder

	b.WriteString("【常规教学工作】\n")
	for i, key := range model.RegularIndicators {
		entry, ok := content.RegularTeaching[key]
		if !ok {
			entry = model.IndicatorEntry{MaxScore: model.DefaultIndicatorMaxScore}
		}
		fmt.Fprintf(&b, "%d. %s（%s）自评 %.1f / %.0f 分\n", i+1, model.IndicatorDisplayName(key), key, entry.SelfScore, entry.MaxScore)
		if text := strings.TrimSpace(entry.Content); text != "" {
			fmt.Fprintf(&b, "   说明：%s\n", text)
		}
	}

	b.WriteString("\n【教学亮点】\n")
	for _, cat := range content.Highlights.Categories() {
		fmt.Fprintf(&b, "- %s（%s）申报 %d 项\n", model.IndicatorDisplayName(cat.Indicator), cat.Indicator, len(cat.Items))
		for _, it := range cat.Items {
			level := it.Level
			if level == "" {
				level = it.LevelPrize
			}
			if level != "" {
				fmt.Fprintf(&b, "  · %s [%s] %.1f 分\n", it.Name, level, it.Score)
			} else {
				fmt.Fprintf(&b, "  · %s %.1f 分\n", it.Name, it.Score)
			}
		}
	}

	b.WriteString("\n【负面清单】\n")
	for _, item := range content.NegativeList.Items() {
		fmt.Fprintf(&b, "- %s：%d 次，扣 %.1f 分", item.Name, item.Entry.Count, item.Entry.Deduction)
		if item.Entry.Description != "" {
			fmt.Fprintf(&b, "（%s）", item.Entry.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n【佐证附件】\n")
	if len(attachments) == 0 {
		b.WriteString("（无）\n")
	}
	for _, a := range attachments {
		fmt.Fprintf(&b, "- %s → 当前归类 %s\n", a.FileName, a.Indicator)
	}

	b.WriteString("\n请根据附件内容核对各类亮点的实际数量，并给出附件的正确指标归类。")
	b.WriteString("输出 JSON 字段：\n")
	b.WriteString(`{"total_score": number, "indicator_scores": [{"indicator": "<指标键>", "score": number, "max_score": number, "comment": "<评语>"}] (共 8 项), `)
	b.WriteString(`"parsed_reform_projects": int, "parsed_honors": int, "parsed_competitions": int, "parsed_innovations": int, `)
	b.WriteString(`"attachment_classifications": [{"file_name": "<文件名>", "indicator": "<指标键>"}]}`)
	b.WriteString("\n可用指标键：")
	keys := append(append([]string{}, model.RegularIndicators...), model.HighlightIndicators...)
	b.WriteString(strings.Join(keys, ", "))
	return b.String()
}
