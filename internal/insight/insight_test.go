package insight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

func TestGradeOf(t *testing.T) {
	assert.Equal(t, GradeExcellent, GradeOf(85))
	assert.Equal(t, GradeGood, GradeOf(84.9))
	assert.Equal(t, GradeGood, GradeOf(75))
	assert.Equal(t, GradeAverage, GradeOf(60))
	assert.Equal(t, GradePoor, GradeOf(59.99))
}

func TestAverages_MergesSourcesAndNames(t *testing.T) {
	ai := &model.AIScore{IndicatorScores: []model.IndicatorScore{
		{Indicator: model.IndicatorCourseConstruct, Score: 90},
	}}
	manual := []model.ManualScore{
		{Scores: []model.IndicatorScore{{Indicator: "课程建设", Score: 70}}},
	}

	avgs := Averages(ai, manual)
	require.Len(t, avgs, 1)
	assert.Equal(t, model.IndicatorCourseConstruct, avgs[0].Indicator)
	assert.InDelta(t, 80.0, avgs[0].Average, 1e-9)
}

func TestAverages_SameScaleForAIAndManual(t *testing.T) {
	// AI 附带满分、人工评分不带满分，二者仍按同一分值平均
	ai := &model.AIScore{IndicatorScores: []model.IndicatorScore{
		{Indicator: model.IndicatorCourseConstruct, Score: 8, MaxScore: 10},
	}}
	manual := []model.ManualScore{
		{Scores: []model.IndicatorScore{{Indicator: model.IndicatorCourseConstruct, Score: 8}}},
		{Scores: []model.IndicatorScore{{Indicator: model.IndicatorCourseConstruct, Score: 5}}},
	}

	avgs := Averages(ai, manual)
	require.Len(t, avgs, 1)
	assert.InDelta(t, 7.0, avgs[0].Average, 1e-9)

	weak := Weak(avgs)
	require.Len(t, weak, 1)
	assert.InDelta(t, 7.0, weak[0].Average, 1e-9)
}

func TestStrongAndWeak(t *testing.T) {
	avgs := []IndicatorAverage{
		{model.IndicatorTeachingProcess, 90},
		{model.IndicatorCourseConstruct, 88},
		{model.IndicatorTextbook, 80},
		{model.IndicatorPracticeTeaching, 76},
		{model.IndicatorQualityMonitoring, 50},
		{model.IndicatorFacultyDevelop, 40},
		{model.IndicatorStudentGuidance, 55},
		{model.IndicatorTeachingResearch, 58},
	}

	strong := Strong(avgs)
	require.Len(t, strong, 3)
	assert.Equal(t, model.IndicatorTeachingProcess, strong[0].Indicator)
	assert.Equal(t, model.IndicatorTextbook, strong[2].Indicator)

	weak := Weak(avgs)
	require.Len(t, weak, 3)
	assert.Equal(t, model.IndicatorFacultyDevelop, weak[0].Indicator)
	assert.Equal(t, model.IndicatorStudentGuidance, weak[2].Indicator)
}

func TestWeak_FallsBackToTwoLowest(t *testing.T) {
	avgs := []IndicatorAverage{
		{model.IndicatorTeachingProcess, 90},
		{model.IndicatorCourseConstruct, 70},
		{model.IndicatorTextbook, 65},
	}
	weak := Weak(avgs)
	require.Len(t, weak, 2)
	assert.Equal(t, model.IndicatorTextbook, weak[0].Indicator)
	assert.Equal(t, model.IndicatorCourseConstruct, weak[1].Indicator)
}

func TestGenerate_DeterministicSingleParagraph(t *testing.T) {
	avgs := []IndicatorAverage{
		{model.IndicatorTeachingProcess, 90},
		{model.IndicatorFacultyDevelop, 40},
	}
	a := Generate(80, avgs)
	b := Generate(80, avgs)

	assert.Equal(t, a, b)
	assert.False(t, strings.Contains(a, "\n"))
	assert.Contains(t, a, "80.0")
	assert.Contains(t, a, "良好")
	assert.Contains(t, a, "教学过程管理")
	assert.Contains(t, a, "师资队伍建设")
	assert.Contains(t, a, suggestions[model.IndicatorFacultyDevelop])
}

func TestGenerate_NoIndicators(t *testing.T) {
	s := Generate(50, nil)
	assert.Contains(t, s, "较差")
	assert.Contains(t, s, "整改")
}
