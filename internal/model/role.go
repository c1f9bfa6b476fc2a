package model

// Role 用户角色
type Role string

const (
	RoleTeachingOffice   Role = "teaching_office"
	RoleEvaluationTeam   Role = "evaluation_team"
	RoleEvaluationOffice Role = "evaluation_office"
	RolePresidentOffice  Role = "president_office"
)

// Valid 判断是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleTeachingOffice, RoleEvaluationTeam, RoleEvaluationOffice, RolePresidentOffice:
		return true
	}
	return false
}

// IsManagement 评审管理角色（评估组 / 评估办）
func (r Role) IsManagement() bool {
	return r == RoleEvaluationTeam || r == RoleEvaluationOffice
}

// Capability 角色能力位
type Capability uint32

const (
	CapEditEvaluation Capability = 1 << iota
	CapSubmitEvaluation
	CapUnlockEvaluation
	CapTriggerAI
	CapHandleAnomaly
	CapManualScore
	CapFinalize
	CapApprove
	CapPublish
	CapDistribute
	CapSync
	CapViewAudit
	CapViewAll
)

// CapabilitySet 能力集合，由认证中间件计算一次后注入上下文
type CapabilitySet Capability

// Has 是否具备某项能力
func (s CapabilitySet) Has(c Capability) bool {
	return Capability(s)&c != 0
}

var roleCapabilities = map[Role]Capability{
	RoleTeachingOffice: CapEditEvaluation | CapSubmitEvaluation | CapTriggerAI,
	RoleEvaluationTeam: CapUnlockEvaluation | CapTriggerAI | CapHandleAnomaly | CapManualScore | CapViewAll,
	RoleEvaluationOffice: CapUnlockEvaluation | CapTriggerAI | CapHandleAnomaly | CapManualScore |
		CapFinalize | CapPublish | CapDistribute | CapSync | CapViewAudit | CapViewAll,
	RolePresidentOffice: CapApprove | CapViewAudit | CapViewAll,
}

// Capabilities 计算角色能力集合；未知角色无任何能力
func (r Role) Capabilities() CapabilitySet {
	return CapabilitySet(roleCapabilities[r])
}

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapEditEvaluation, "edit_evaluation"},
	{CapSubmitEvaluation, "submit_evaluation"},
	{CapUnlockEvaluation, "unlock_evaluation"},
	{CapTriggerAI, "trigger_ai"},
	{CapHandleAnomaly, "handle_anomaly"},
	{CapManualScore, "manual_score"},
	{CapFinalize, "finalize"},
	{CapApprove, "approve"},
	{CapPublish, "publish"},
	{CapDistribute, "distribute"},
	{CapSync, "sync"},
	{CapViewAudit, "view_audit"},
	{CapViewAll, "view_all"},
}

// Names 能力名称列表（供前端按能力渲染）
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for _, c := range capabilityNames {
		if s.Has(c.cap) {
			names = append(names, c.name)
		}
	}
	return names
}
