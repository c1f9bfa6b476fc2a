package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// ContentSchemaVersion 当前自评内容结构版本
const ContentSchemaVersion = 1

// DefaultIndicatorMaxScore 常规教学指标满分
const DefaultIndicatorMaxScore = 10

// ── 指标 ──

// 八项常规教学指标
const (
	IndicatorTeachingProcess   = "teaching_process_management"
	IndicatorCourseConstruct   = "course_construction"
	IndicatorTextbook          = "textbook_construction"
	IndicatorPracticeTeaching  = "practice_teaching"
	IndicatorQualityMonitoring = "teaching_quality_monitoring"
	IndicatorFacultyDevelop    = "faculty_development"
	IndicatorStudentGuidance   = "student_guidance"
	IndicatorTeachingResearch  = "teaching_research"
)

// 四类教学亮点
const (
	IndicatorReformProjects = "teaching_reform_projects"
	IndicatorHonors         = "teaching_honors"
	IndicatorCompetitions   = "teaching_competitions"
	IndicatorInnovations    = "innovation_projects"
)

// RegularIndicators 常规教学指标（固定顺序）
var RegularIndicators = []string{
	IndicatorTeachingProcess,
	IndicatorCourseConstruct,
	IndicatorTextbook,
	IndicatorPracticeTeaching,
	IndicatorQualityMonitoring,
	IndicatorFacultyDevelop,
	IndicatorStudentGuidance,
	IndicatorTeachingResearch,
}

// HighlightIndicators 教学亮点类别（固定顺序）
var HighlightIndicators = []string{
	IndicatorReformProjects,
	IndicatorHonors,
	IndicatorCompetitions,
	IndicatorInnovations,
}

// IndicatorNames 指标键 → 中文名称
var IndicatorNames = map[string]string{
	IndicatorTeachingProcess:   "教学过程管理",
	IndicatorCourseConstruct:   "课程建设",
	IndicatorTextbook:          "教材建设",
	IndicatorPracticeTeaching:  "实践教学",
	IndicatorQualityMonitoring: "教学质量监控",
	IndicatorFacultyDevelop:    "师资队伍建设",
	IndicatorStudentGuidance:   "学生指导",
	IndicatorTeachingResearch:  "教学研究",
	IndicatorReformProjects:    "教学改革项目",
	IndicatorHonors:            "教学荣誉",
	IndicatorCompetitions:      "教学竞赛",
	IndicatorInnovations:       "创新创业",
}

var indicatorByName = func() map[string]string {
	m := make(map[string]string, len(IndicatorNames))
	for k, v := range IndicatorNames {
		m[v] = k
	}
	return m
}()

// IsKnownIndicator 是否为可识别的附件/评分指标
func IsKnownIndicator(key string) bool {
	_, ok := IndicatorNames[key]
	return ok
}

// NormalizeIndicator 将中文名称统一为指标键；无法识别时原样返回
func NormalizeIndicator(s string) string {
	if IsKnownIndicator(s) {
		return s
	}
	if k, ok := indicatorByName[s]; ok {
		return k
	}
	return s
}

// IndicatorDisplayName 指标展示名称
func IndicatorDisplayName(key string) string {
	if n, ok := IndicatorNames[key]; ok {
		return n
	}
	return key
}

// ── 自评内容 ──

// EvaluationContent Evaluation.content 的结构化视图
type EvaluationContent struct {
	SchemaVersion   int                       `json:"schemaVersion"   validate:"gte=1"`
	RegularTeaching map[string]IndicatorEntry `json:"regularTeaching" validate:"dive"`
	Highlights      Highlights                `json:"highlights"`
	NegativeList    NegativeList              `json:"negativeList"`
}

// IndicatorEntry 常规教学指标自评
type IndicatorEntry struct {
	Content   string  `json:"content"   validate:"max=20000"`
	SelfScore float64 `json:"selfScore" validate:"gte=0,ltefield=MaxScore"`
	MaxScore  float64 `json:"maxScore"  validate:"gt=0"`
}

// HighlightItem 亮点条目
type HighlightItem struct {
	Name       string  `json:"name"                 validate:"required,max=500"`
	Level      string  `json:"level,omitempty"      validate:"max=50"`
	LevelPrize string  `json:"levelPrize,omitempty" validate:"max=50"`
	Score      float64 `json:"score"                validate:"gte=0"`
}

// Highlights 四类教学亮点
type Highlights struct {
	ReformProjects []HighlightItem `json:"reformProjects" validate:"dive"`
	Honors         []HighlightItem `json:"honors"         validate:"dive"`
	Competitions   []HighlightItem `json:"competitions"   validate:"dive"`
	Innovations    []HighlightItem `json:"innovations"    validate:"dive"`
}

// NegativeEntry 负面清单扣分项
type NegativeEntry struct {
	Count       int     `json:"count"                 validate:"gte=0"`
	Deduction   float64 `json:"deduction"             validate:"gte=0"`
	Description string  `json:"description,omitempty" validate:"max=2000"`
}

// NegativeList 负面清单（四项）
type NegativeList struct {
	EthicsViolation   NegativeEntry `json:"ethicsViolation"`
	TeachingAccident  NegativeEntry `json:"teachingAccident"`
	IdeologicalIssue  NegativeEntry `json:"ideologicalIssue"`
	WorkloadShortfall NegativeEntry `json:"workloadShortfall"`
}

// NegativeItem 负面清单条目（带名称，便于遍历）
type NegativeItem struct {
	Key   string
	Name  string
	Entry NegativeEntry
}

// Items 按固定顺序列出负面清单
func (n NegativeList) Items() []NegativeItem {
	return []NegativeItem{
		{Key: "ethicsViolation", Name: "师德师风问题", Entry: n.EthicsViolation},
		{Key: "teachingAccident", Name: "教学事故", Entry: n.TeachingAccident},
		{Key: "ideologicalIssue", Name: "意识形态问题", Entry: n.IdeologicalIssue},
		{Key: "workloadShortfall", Name: "工作量不足", Entry: n.WorkloadShortfall},
	}
}

// HighlightCategory 亮点类别及其条目
type HighlightCategory struct {
	Indicator string
	Items     []HighlightItem
}

// Categories 按固定顺序列出亮点类别
func (h Highlights) Categories() []HighlightCategory {
	return []HighlightCategory{
		{Indicator: IndicatorReformProjects, Items: h.ReformProjects},
		{Indicator: IndicatorHonors, Items: h.Honors},
		{Indicator: IndicatorCompetitions, Items: h.Competitions},
		{Indicator: IndicatorInnovations, Items: h.Innovations},
	}
}

var contentValidator = validator.New()

// ParseContent 解析并校验自评内容；缺省的 schemaVersion 与 maxScore 按当前版本补齐
func ParseContent(raw []byte) (*EvaluationContent, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var c EvaluationContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("自评内容不是合法的 JSON 对象: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *EvaluationContent) normalize() {
	if c.SchemaVersion == 0 {
		c.SchemaVersion = ContentSchemaVersion
	}
	if c.RegularTeaching == nil {
		c.RegularTeaching = map[string]IndicatorEntry{}
	}
	for k, e := range c.RegularTeaching {
		if e.MaxScore == 0 {
			e.MaxScore = DefaultIndicatorMaxScore
			c.RegularTeaching[k] = e
		}
	}
}

// Validate 校验结构与取值范围
func (c *EvaluationContent) Validate() error {
	if c.SchemaVersion > ContentSchemaVersion {
		return fmt.Errorf("不支持的内容版本 schemaVersion=%d", c.SchemaVersion)
	}
	keys := make([]string, 0, len(c.RegularTeaching))
	for k := range c.RegularTeaching {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !isRegularIndicator(k) {
			return fmt.Errorf("未知的常规教学指标 %q", k)
		}
	}
	if err := contentValidator.Struct(c); err != nil {
		return fmt.Errorf("自评内容校验失败: %w", err)
	}
	return nil
}

func isRegularIndicator(k string) bool {
	for _, r := range RegularIndicators {
		if r == k {
			return true
		}
	}
	return false
}
