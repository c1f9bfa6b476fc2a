package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// AuditHandler 审计日志 HTTP 处理器
type AuditHandler struct {
	auditSvc service.AuditService
}

// NewAuditHandler 创建 AuditHandler
func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// List 审计日志查询
// GET /api/v1/operation-logs
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.OperationLogListRequest
	if !bindQuery(c, &req) {
		return
	}

	list, total, err := h.auditSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
