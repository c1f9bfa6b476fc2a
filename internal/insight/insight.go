// Package insight 根据最终得分与各指标平均分确定性地生成评估洞察摘要
package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// 等级阈值为固定常量
const (
	ThresholdExcellent = 85.0
	ThresholdGood      = 75.0
	ThresholdAverage   = 60.0

	maxListed = 3
)

// Grade 等级
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeAverage   Grade = "average"
	GradePoor      Grade = "poor"
)

var gradeNames = map[Grade]string{
	GradeExcellent: "优秀",
	GradeGood:      "良好",
	GradeAverage:   "一般",
	GradePoor:      "较差",
}

// GradeOf ≥85 优秀，≥75 良好，≥60 一般，其余较差
func GradeOf(score float64) Grade {
	switch {
	case score >= ThresholdExcellent:
		return GradeExcellent
	case score >= ThresholdGood:
		return GradeGood
	case score >= ThresholdAverage:
		return GradeAverage
	default:
		return GradePoor
	}
}

// Label 等级中文名
func (g Grade) Label() string { return gradeNames[g] }

// suggestions 指标键 → 改进建议
var suggestions = map[string]string{
	model.IndicatorTeachingProcess:   "规范教学过程管理，完善教学文件归档与过程检查记录",
	model.IndicatorCourseConstruct:   "加大课程建设投入，推进一流课程与课程思政建设",
	model.IndicatorTextbook:          "鼓励教师参与教材编写，提高规划教材与特色教材的选用比例",
	model.IndicatorPracticeTeaching:  "强化实践教学环节，拓展校外实习实训基地",
	model.IndicatorQualityMonitoring: "健全教学质量监控闭环，落实听课评课与学生评教反馈",
	model.IndicatorFacultyDevelop:    "加强师资队伍建设，完善青年教师培养与教学团队建设",
	model.IndicatorStudentGuidance:   "加强学生学业与竞赛指导，提升导师制覆盖面",
	model.IndicatorTeachingResearch:  "积极申报教学研究项目，促进教研成果转化",
	model.IndicatorReformProjects:    "积极组织申报各级教学改革项目",
	model.IndicatorHonors:            "注重教学荣誉的培育与申报",
	model.IndicatorCompetitions:      "组织教师参加教学竞赛，以赛促教",
	model.IndicatorInnovations:       "加强创新创业教育，指导学生开展创新项目",
}

// IndicatorAverage 单项指标的平均得分
type IndicatorAverage struct {
	Indicator string  `json:"indicator"`
	Average   float64 `json:"average"`
}

// Averages 汇总 AI 评分与各人工评分中同一指标的得分，取等权平均
// 所有来源按原始分值参与平均，不做满分折算；指标名称统一为指标键；结果按指标键排序
func Averages(ai *model.AIScore, manual []model.ManualScore) []IndicatorAverage {
	sums := map[string]float64{}
	counts := map[string]int{}
	add := func(list []model.IndicatorScore) {
		for _, s := range list {
			key := model.NormalizeIndicator(s.Indicator)
			if key == "" {
				continue
			}
			sums[key] += s.Score
			counts[key]++
		}
	}
	if ai != nil {
		add(ai.IndicatorScores)
	}
	for i := range manual {
		add(manual[i].Scores)
	}

	out := make([]IndicatorAverage, 0, len(sums))
	for k, sum := range sums {
		out = append(out, IndicatorAverage{Indicator: k, Average: sum / float64(counts[k])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Indicator < out[j].Indicator })
	return out
}

// Strong 平均分 ≥75 的指标，降序取前三
func Strong(avgs []IndicatorAverage) []IndicatorAverage {
	var out []IndicatorAverage
	for _, a := range avgs {
		if a.Average >= ThresholdGood {
			out = append(out, a)
		}
	}
	sortBy(out, true)
	return head(out, maxListed)
}

// Weak 平均分 <60 的指标，升序取前三；没有时取最低的两项
func Weak(avgs []IndicatorAverage) []IndicatorAverage {
	var out []IndicatorAverage
	for _, a := range avgs {
		if a.Average < ThresholdAverage {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		out = append(out, avgs...)
		sortBy(out, false)
		return head(out, 2)
	}
	sortBy(out, false)
	return head(out, maxListed)
}

// Generate 生成单段落摘要：等级 → 优势 → 短板 → 建议 → 结语
func Generate(finalScore float64, avgs []IndicatorAverage) string {
	grade := GradeOf(finalScore)
	strong := Strong(avgs)
	weak := Weak(avgs)

	var b strings.Builder
	fmt.Fprintf(&b, "本年度教研室考核最终得分为 %.1f 分，综合评定等级为“%s”。", finalScore, grade.Label())

	if len(strong) > 0 {
		fmt.Fprintf(&b, "表现突出的指标包括%s。", join(strong))
	} else {
		b.WriteString("各项指标暂未达到良好水平，整体仍有较大提升空间。")
	}

	if len(weak) > 0 {
		fmt.Fprintf(&b, "相对薄弱的指标为%s。", join(weak))
		var tips []string
		for _, w := range weak {
			if s, ok := suggestions[w.Indicator]; ok {
				tips = append(tips, s)
			}
		}
		if len(tips) > 0 {
			fmt.Fprintf(&b, "建议%s。", strings.Join(tips, "；"))
		}
	}

	switch grade {
	case GradeExcellent, GradeGood:
		b.WriteString("希望教研室保持优势、补齐短板，持续提升教学工作水平。")
	default:
		b.WriteString("希望教研室正视问题、制定整改计划，切实提升教学工作质量。")
	}
	return b.String()
}

func sortBy(list []IndicatorAverage, desc bool) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Average == list[j].Average {
			return list[i].Indicator < list[j].Indicator
		}
		if desc {
			return list[i].Average > list[j].Average
		}
		return list[i].Average < list[j].Average
	})
}

func head(list []IndicatorAverage, n int) []IndicatorAverage {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func join(list []IndicatorAverage) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = fmt.Sprintf("%s（%.1f 分）", model.IndicatorDisplayName(a.Indicator), a.Average)
	}
	return strings.Join(parts, "、")
}
