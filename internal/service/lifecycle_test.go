package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// ── 主流程 ──

func TestLifecycle_HappyPath(t *testing.T) {
	h := newHarness(t)
	director := h.actor(h.fx.Director)

	e := h.draft(2, 2)
	for _, name := range []string{"a.pdf", "b.pdf"} {
		_, err := h.svc.Attachment.Upload(h.ctx, director, UploadInput{
			EvaluationID: e.ID,
			Indicator:    model.IndicatorReformProjects,
			FileName:     name,
			FileType:     "application/pdf",
			FileSize:     8,
		}, strings.NewReader("%PDF-1.4"))
		if err != nil {
			t.Fatalf("上传附件 %s 失败: %v", name, err)
		}
	}

	if _, err := h.svc.Evaluation.Submit(h.ctx, director, e.ID, nil); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusLocked)

	h.aiReply(78.5, 2, 2)
	task := h.scoreAI(h.reload(e.ID))
	if task.Status != model.AITaskCompleted {
		t.Fatalf("AI 评分任务应完成，实际 %s", task.Status)
	}
	h.expectStatus(e.ID, model.StatusAIScored)
	if n, _ := h.repo.Anomaly.CountPending(h.ctx, e.ID); n != 0 {
		t.Errorf("声明与解析数量一致时不应产生异常，实际 %d 条", n)
	}

	h.manual(h.fx.Team, e, 40, 40)
	h.expectStatus(e.ID, model.StatusManuallyScored)
	h.manual(h.fx.Office2, e, 40, 40)

	office := h.actor(h.fx.Office2)
	if _, err := h.svc.Scoring.Finalize(h.ctx, office, e.ID, &dto.FinalizeRequest{FinalScore: 80, Summary: "综合良好"}); err != nil {
		t.Fatalf("确定最终得分失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusFinalized)

	if _, err := h.svc.Approval.Approve(h.ctx, h.actor(h.fx.President), &dto.ApprovalRequest{EvaluationIDs: []string{e.ID}}); err != nil {
		t.Fatalf("审定失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusApproved)

	pub, err := h.svc.Publication.Publish(h.ctx, office, &dto.PublishRequest{EvaluationIDs: []string{e.ID}})
	if err != nil {
		t.Fatalf("公示失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusPublished)

	pub, err = h.svc.Publication.Distribute(h.ctx, office, pub.ID)
	if err != nil {
		t.Fatalf("分发失败: %v", err)
	}
	if pub.DistributedAt == nil {
		t.Error("分发后 distributed_at 不应为空")
	}
	h.expectStatus(e.ID, model.StatusDistributed)

	in, err := h.svc.Insight.Get(h.ctx, director, e.ID)
	if err != nil {
		t.Fatalf("分发后应生成洞察摘要: %v", err)
	}
	if !strings.Contains(in.Summary, "80.0") || !strings.Contains(in.Summary, "良好") {
		t.Errorf("摘要应包含最终得分与等级，实际: %s", in.Summary)
	}

	atts, _ := h.repo.Attachment.ListByEvaluation(h.ctx, e.ID)
	for _, a := range atts {
		if !a.IsArchived {
			t.Errorf("分发后附件 %s 应已归档", a.FileName)
		}
	}
}

// 每次迁移 version 恰好加一，并追加恰好一条审计日志
func TestLifecycle_EveryTransitionLogsOnce(t *testing.T) {
	h := newHarness(t)
	director := h.actor(h.fx.Director)

	e := h.draft(0, 0)
	before := len(h.logs(model.TargetEvaluation, e.ID))

	saved, err := h.svc.Evaluation.SaveContent(h.ctx, director, e.ID, &dto.SaveContentRequest{Content: content(1, 0), Version: intPtr(e.Version)})
	if err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if saved.Version != e.Version+1 {
		t.Errorf("期望 version=%d，实际 %d", e.Version+1, saved.Version)
	}

	locked, err := h.svc.Evaluation.Submit(h.ctx, director, e.ID, intPtr(saved.Version))
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if locked.Version != saved.Version+1 || locked.SubmittedAt == nil {
		t.Errorf("提交后 version 应加一并记录提交时间，实际 version=%d", locked.Version)
	}

	logs := h.logs(model.TargetEvaluation, e.ID)
	if len(logs)-before != 2 {
		t.Fatalf("两次迁移应追加 2 条日志，实际 %d", len(logs)-before)
	}
	last := logs[len(logs)-1]
	if last.OperationType != model.OpSubmit || last.OperatorID != h.fx.Director.ID {
		t.Errorf("最后一条日志应为提交操作，实际 %s/%s", last.OperationType, last.OperatorID)
	}
}

func TestLifecycle_ConcurrentSubmitConflicts(t *testing.T) {
	h := newHarness(t)
	director := h.actor(h.fx.Director)
	e := h.draft(0, 0)

	// 两个请求读到同一版本
	v := e.Version
	if _, err := h.svc.Evaluation.Submit(h.ctx, director, e.ID, &v); err != nil {
		t.Fatalf("第一次提交应成功: %v", err)
	}
	_, err := h.svc.Evaluation.Submit(h.ctx, director, e.ID, &v)
	if !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("第二次提交应返回冲突，实际: %v", err)
	}
	got := h.expectStatus(e.ID, model.StatusLocked)
	if got.Version != v+1 {
		t.Errorf("冲突不应改变 version，期望 %d 实际 %d", v+1, got.Version)
	}
}

func TestLifecycle_InvalidTransitionLeavesState(t *testing.T) {
	h := newHarness(t)
	e := h.draft(0, 0)

	_, err := h.svc.Scoring.Finalize(h.ctx, h.actor(h.fx.Office2), e.ID, &dto.FinalizeRequest{FinalScore: 80, Summary: "x"})
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("草稿不能确定最终得分，实际: %v", err)
	}
	got := h.expectStatus(e.ID, model.StatusDraft)
	if got.Version != e.Version {
		t.Errorf("非法迁移不应改变 version")
	}
}

func TestLifecycle_UnlockReturnsToDraft(t *testing.T) {
	h := newHarness(t)
	e := h.submitted(0, 0)

	if _, err := h.svc.Evaluation.Unlock(h.ctx, h.actor(h.fx.Director), e.ID, &dto.UnlockRequest{Reason: "自己解锁"}); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("教研室不能解锁，实际: %v", err)
	}
	if _, err := h.svc.Evaluation.Unlock(h.ctx, h.actor(h.fx.Team), e.ID, &dto.UnlockRequest{Reason: "材料有误"}); err != nil {
		t.Fatalf("评审角色解锁失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusDraft)
}

func TestLifecycle_OtherOfficeCannotSee(t *testing.T) {
	h := newHarness(t)
	e := h.draft(0, 0)

	other := model.NewActor(h.fx.Director.ID, "外室", model.RoleTeachingOffice, h.fx.Other.ID)
	if _, err := h.svc.Evaluation.Get(h.ctx, other, e.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("其他教研室不应看到评估，实际: %v", err)
	}
	if _, err := h.svc.Evaluation.Get(h.ctx, h.actor(h.fx.Team), e.ID); err != nil {
		t.Fatalf("评审角色应可查看: %v", err)
	}
	detail, err := h.svc.Evaluation.Get(h.ctx, h.actor(h.fx.Director), e.ID)
	if err != nil {
		t.Fatalf("本教研室应可查看: %v", err)
	}
	found := false
	for _, op := range detail.Allowed {
		found = found || op == model.OpSubmit
	}
	if !found {
		t.Errorf("草稿详情应允许提交，实际 %v", detail.Allowed)
	}
}

func TestLifecycle_CreateDraftReturnsExisting(t *testing.T) {
	h := newHarness(t)
	first := h.draft(0, 0)
	second := h.draft(1, 1)
	if first.ID != second.ID {
		t.Errorf("同一年度应返回已有草稿")
	}
}

// ── 校长办公会驳回后重新报送 ──

func TestApproval_RejectAndResubmit(t *testing.T) {
	h := newHarness(t)
	e := h.finalized(80)
	president := h.actor(h.fx.President)

	if _, err := h.svc.Approval.Reject(h.ctx, president, &dto.ApprovalRequest{EvaluationIDs: []string{e.ID}}); !errors.Is(err, ErrRejectReasonRequired) {
		t.Fatalf("驳回必须填写原因，实际: %v", err)
	}
	if _, err := h.svc.Approval.Reject(h.ctx, president, &dto.ApprovalRequest{EvaluationIDs: []string{e.ID}, RejectReason: "得分依据不足"}); err != nil {
		t.Fatalf("驳回失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusRejectedByPresident)

	if _, err := h.svc.Approval.Approve(h.ctx, president, &dto.ApprovalRequest{EvaluationIDs: []string{e.ID}}); !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("被驳回的评估不能直接审定通过，实际: %v", err)
	}

	if _, err := h.svc.Approval.Resubmit(h.ctx, h.actor(h.fx.Office2), e.ID, &dto.ResubmitRequest{Reason: "已补充说明"}); err != nil {
		t.Fatalf("重新报送失败: %v", err)
	}
	h.expectStatus(e.ID, model.StatusFinalized)

	logs := h.logs(model.TargetEvaluation, e.ID)
	last := logs[len(logs)-1]
	if last.OperationType != model.OpResubmitToPresident || !strings.Contains(string(last.Details), "得分依据不足") {
		t.Errorf("重新报送日志应记录上次驳回原因，实际: %s", last.Details)
	}
}

// 批量审定中任一评估不满足条件时整批回滚
func TestApproval_BatchIsAtomic(t *testing.T) {
	h := newHarness(t)
	done := h.finalized(80)

	other := &model.Evaluation{TeachingOfficeID: h.fx.Other.ID, Year: 2024, Content: []byte("{}"), Status: model.StatusDraft}
	if err := h.repo.Evaluation.Create(h.ctx, other); err != nil {
		t.Fatalf("创建评估失败: %v", err)
	}

	_, err := h.svc.Approval.Approve(h.ctx, h.actor(h.fx.President), &dto.ApprovalRequest{EvaluationIDs: []string{done.ID, other.ID}})
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Fatalf("含草稿的批次应失败，实际: %v", err)
	}
	h.expectStatus(done.ID, model.StatusFinalized)
	if list, _, _ := h.repo.Approval.List(h.ctx, 0, 10); len(list) != 0 {
		t.Errorf("失败的批次不应留下审定记录")
	}
}

func TestPublication_EvaluationPublishedOnce(t *testing.T) {
	h := newHarness(t)
	e := h.finalized(80)
	office := h.actor(h.fx.Office2)
	if _, err := h.svc.Approval.Approve(h.ctx, h.actor(h.fx.President), &dto.ApprovalRequest{EvaluationIDs: []string{e.ID}}); err != nil {
		t.Fatalf("审定失败: %v", err)
	}
	pub, err := h.svc.Publication.Publish(h.ctx, office, &dto.PublishRequest{EvaluationIDs: []string{e.ID}})
	if err != nil {
		t.Fatalf("公示失败: %v", err)
	}
	if _, err := h.svc.Publication.Publish(h.ctx, office, &dto.PublishRequest{EvaluationIDs: []string{e.ID}}); err == nil {
		t.Fatal("已公示的评估不能再次公示")
	}

	if _, err := h.svc.Publication.Distribute(h.ctx, office, pub.ID); err != nil {
		t.Fatalf("分发失败: %v", err)
	}
	if _, err := h.svc.Publication.Distribute(h.ctx, office, pub.ID); !errors.Is(err, ErrPublicationDone) {
		t.Errorf("重复分发应失败，实际: %v", err)
	}

	buf, name, err := h.svc.Publication.Export(h.ctx, office, pub.ID)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if buf.Len() == 0 || !strings.HasSuffix(name, ".xlsx") {
		t.Errorf("导出结果应为非空 xlsx，实际 %s (%d bytes)", name, buf.Len())
	}
}
