package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// EvaluationHandler 评估模块 HTTP 处理器
type EvaluationHandler struct {
	evalSvc service.EvaluationService
}

// NewEvaluationHandler 创建 EvaluationHandler
func NewEvaluationHandler(evalSvc service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evalSvc: evalSvc}
}

// Create 创建（或取回）年度草稿
// POST /api/v1/evaluations
func (h *EvaluationHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.CreateEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.evalSvc.CreateDraft(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, e)
}

// List 评估列表
// GET /api/v1/evaluations
func (h *EvaluationHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.EvaluationListRequest
	if !bindQuery(c, &req) {
		return
	}

	list, total, err := h.evalSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 评估详情
// GET /api/v1/evaluations/:id
func (h *EvaluationHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	detail, err := h.evalSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, detail)
}

// SaveContent 保存自评内容
// PUT /api/v1/evaluations/:id/content
func (h *EvaluationHandler) SaveContent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.SaveContentRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.evalSvc.SaveContent(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, e)
}

// Submit 提交并锁定
// POST /api/v1/evaluations/:id/submit
func (h *EvaluationHandler) Submit(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	e, err := h.evalSvc.Submit(c.Request.Context(), actor, c.Param("id"), req.Version)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, e)
}

// Unlock 解锁退回草稿
// POST /api/v1/evaluations/:id/unlock
func (h *EvaluationHandler) Unlock(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.UnlockRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.evalSvc.Unlock(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, e)
}

// History 评估的操作日志
// GET /api/v1/evaluations/:id/history
func (h *EvaluationHandler) History(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	logs, err := h.evalSvc.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, logs)
}

// Transitions 状态迁移表
// GET /api/v1/workflow/transitions
func (h *EvaluationHandler) Transitions(c *gin.Context) {
	response.OK(c, h.evalSvc.Transitions())
}
