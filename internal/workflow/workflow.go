// Package workflow 评估记录状态机：状态 × 操作 → 目标状态
// 每一行都可表达为 WHERE status=<from> AND version=<v> 的条件更新
package workflow

import (
	"fmt"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// Transition 状态迁移规则；To 为空表示保持原状态
type Transition struct {
	Operation string
	From      []model.EvaluationStatus
	To        model.EvaluationStatus
	Cap       model.Capability
	Guard     string
}

// 状态迁移表
var table = []Transition{
	{model.OpSaveContent, []model.EvaluationStatus{model.StatusDraft}, model.StatusDraft, model.CapEditEvaluation, "教研室本人；未锁定"},
	{model.OpSaveContent, []model.EvaluationStatus{model.StatusRejected}, model.StatusDraft, model.CapEditEvaluation, "教研室本人；被驳回后重新编辑"},
	{model.OpSubmit, []model.EvaluationStatus{model.StatusDraft}, model.StatusLocked, model.CapSubmitEvaluation, "教研室本人；记录提交时间"},
	{model.OpUnlock, []model.EvaluationStatus{model.StatusLocked}, model.StatusDraft, model.CapUnlockEvaluation, "评审管理角色；需填写原因"},
	{model.OpTriggerAI, []model.EvaluationStatus{model.StatusLocked}, model.StatusLocked, model.CapTriggerAI, "尚无 AI 评分；异步转入 ai_scored"},
	{model.OpAIScored, []model.EvaluationStatus{model.StatusLocked}, model.StatusAIScored, model.CapTriggerAI, "AI 评分已写入"},
	{model.OpReuseAIScore, []model.EvaluationStatus{model.StatusLocked}, model.StatusAIScored, model.CapTriggerAI, "已有 AI 评分；按解析数量重新检测异常"},
	{model.OpRejectAnomaly, []model.EvaluationStatus{model.StatusLocked, model.StatusAIScored}, model.StatusRejected, model.CapHandleAnomaly, "存在待处理异常；需填写驳回原因"},
	{model.OpCorrectAnomaly, []model.EvaluationStatus{model.StatusAIScored}, model.StatusAIScored, model.CapHandleAnomaly, "评审管理角色；合并修正数据"},
	{model.OpManualScore, []model.EvaluationStatus{model.StatusAIScored, model.StatusManuallyScored}, model.StatusManuallyScored, model.CapManualScore, "每位评审人至多一次"},
	{model.OpFinalize, []model.EvaluationStatus{model.StatusAIScored, model.StatusManuallyScored}, model.StatusFinalized, model.CapFinalize, "评估办；至少一份人工评分；偏离加权均值不超过 20%"},
	{model.OpApprove, []model.EvaluationStatus{model.StatusFinalized}, model.StatusApproved, model.CapApprove, "校长办公会"},
	{model.OpReject, []model.EvaluationStatus{model.StatusFinalized}, model.StatusRejectedByPresident, model.CapApprove, "校长办公会；需填写驳回原因"},
	{model.OpResubmitToPresident, []model.EvaluationStatus{model.StatusRejectedByPresident}, model.StatusFinalized, model.CapFinalize, "评估办；沿用原最终得分"},
	{model.OpPublish, []model.EvaluationStatus{model.StatusApproved}, model.StatusPublished, model.CapPublish, "评估办；已审定通过且未被其他公示包含"},
	{model.OpDistribute, []model.EvaluationStatus{model.StatusPublished}, model.StatusDistributed, model.CapDistribute, "公示尚未分发；生成洞察摘要"},
}

// errInvalid 当前状态不允许该操作
func errInvalid(from model.EvaluationStatus, op string) error {
	return pkgerrors.New(pkgerrors.ErrInvalidTransition,
		fmt.Sprintf("评估当前状态为 %s，不允许执行 %s", from, op))
}

// Next 返回 from 状态执行 op 后的目标状态
func Next(from model.EvaluationStatus, op string) (model.EvaluationStatus, error) {
	t, ok := lookup(from, op)
	if !ok {
		return "", errInvalid(from, op)
	}
	return t.To, nil
}

// Check 同时校验调用方能力与迁移合法性；能力优先于状态
func Check(actor model.Actor, from model.EvaluationStatus, op string) (model.EvaluationStatus, error) {
	need, known := capabilityOf(op)
	if !known {
		return "", errInvalid(from, op)
	}
	if !actor.Can(need) {
		return "", pkgerrors.New(pkgerrors.ErrForbidden, "当前角色无权执行该操作")
	}
	return Next(from, op)
}

// Allowed 列出 from 状态下 actor 可执行的操作
func Allowed(actor model.Actor, from model.EvaluationStatus) []string {
	var ops []string
	seen := map[string]bool{}
	for _, t := range table {
		if seen[t.Operation] || !actor.Can(t.Cap) {
			continue
		}
		for _, f := range t.From {
			if f == from {
				ops = append(ops, t.Operation)
				seen[t.Operation] = true
				break
			}
		}
	}
	return ops
}

// Table 返回迁移表副本
func Table() []Transition {
	out := make([]Transition, len(table))
	copy(out, table)
	return out
}

func lookup(from model.EvaluationStatus, op string) (Transition, bool) {
	for _, t := range table {
		if t.Operation != op {
			continue
		}
		for _, f := range t.From {
			if f == from {
				return t, true
			}
		}
	}
	return Transition{}, false
}

func capabilityOf(op string) (model.Capability, bool) {
	for _, t := range table {
		if t.Operation == op {
			return t.Cap, true
		}
	}
	return 0, false
}
