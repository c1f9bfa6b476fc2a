package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// ApprovalHandler 校长办公会审定 HTTP 处理器
type ApprovalHandler struct {
	approvalSvc service.ApprovalService
}

// NewApprovalHandler 创建 ApprovalHandler
func NewApprovalHandler(approvalSvc service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalSvc: approvalSvc}
}

// Approve 批量审定通过
// POST /api/v1/approvals/approve
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.ApprovalRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.approvalSvc.Approve(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, a)
}

// Reject 批量驳回
// POST /api/v1/approvals/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.ApprovalRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.approvalSvc.Reject(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, a)
}

// Resubmit 驳回后重新报送
// POST /api/v1/evaluations/:id/resubmit
func (h *ApprovalHandler) Resubmit(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.ResubmitRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.approvalSvc.Resubmit(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, e)
}

// List 审定记录
// GET /api/v1/approvals
func (h *ApprovalHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var page dto.PaginationRequest
	if !bindQuery(c, &page) {
		return
	}

	list, total, err := h.approvalSvc.List(c.Request.Context(), actor, &page)
	if err != nil {
		fail(c, err)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}
