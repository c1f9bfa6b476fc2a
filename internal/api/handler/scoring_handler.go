package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// ScoringHandler AI 评分、异常处理与人工评分 HTTP 处理器
type ScoringHandler struct {
	aiSvc      service.AIScoringService
	anomalySvc service.AnomalyService
	scoringSvc service.ScoringService
}

// NewScoringHandler 创建 ScoringHandler
func NewScoringHandler(aiSvc service.AIScoringService, anomalySvc service.AnomalyService, scoringSvc service.ScoringService) *ScoringHandler {
	return &ScoringHandler{aiSvc: aiSvc, anomalySvc: anomalySvc, scoringSvc: scoringSvc}
}

// TriggerAI 触发 AI 评分，返回任务记录
// POST /api/v1/evaluations/:id/ai-score
func (h *ScoringHandler) TriggerAI(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	task, err := h.aiSvc.Trigger(c.Request.Context(), actor, c.Param("id"), req.Version)
	if err != nil {
		fail(c, err)
		return
	}
	response.Accepted(c, task)
}

// GetAITask 查询 AI 评分任务
// GET /api/v1/ai-tasks/:id
func (h *ScoringHandler) GetAITask(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	task, err := h.aiSvc.GetTask(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, task)
}

// ListAnomalies 评估的异常列表
// GET /api/v1/evaluations/:id/anomalies
func (h *ScoringHandler) ListAnomalies(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.anomalySvc.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, list)
}

// HandleAnomaly 驳回或修正异常
// POST /api/v1/evaluations/:id/anomalies/:anomalyId/handle
func (h *ScoringHandler) HandleAnomaly(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.HandleAnomalyRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.anomalySvc.Handle(c.Request.Context(), actor, c.Param("id"), c.Param("anomalyId"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, e)
}

// SubmitManual 提交人工评分
// POST /api/v1/evaluations/:id/manual-scores
func (h *ScoringHandler) SubmitManual(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.ManualScoreRequest
	if !bindJSON(c, &req) {
		return
	}

	ms, err := h.scoringSvc.SubmitManual(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, ms)
}

// Finalize 确定最终得分
// POST /api/v1/evaluations/:id/final-score
func (h *ScoringHandler) Finalize(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.FinalizeRequest
	if !bindJSON(c, &req) {
		return
	}

	fs, err := h.scoringSvc.Finalize(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, fs)
}

// Summary 评分汇总
// GET /api/v1/evaluations/:id/scores
func (h *ScoringHandler) Summary(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sum, err := h.scoringSvc.Summary(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, sum)
}
