package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PublicationHandler 公示、分发与洞察摘要 HTTP 处理器
type PublicationHandler struct {
	pubSvc     service.PublicationService
	insightSvc service.InsightService
}

// NewPublicationHandler 创建 PublicationHandler
func NewPublicationHandler(pubSvc service.PublicationService, insightSvc service.InsightService) *PublicationHandler {
	return &PublicationHandler{pubSvc: pubSvc, insightSvc: insightSvc}
}

// Publish 公示
// POST /api/v1/publications
func (h *PublicationHandler) Publish(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.pubSvc.Publish(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, p)
}

// Distribute 分发
// POST /api/v1/publications/:id/distribute
func (h *PublicationHandler) Distribute(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	p, err := h.pubSvc.Distribute(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, p)
}

// List 公示列表
// GET /api/v1/publications
func (h *PublicationHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var page dto.PaginationRequest
	if !bindQuery(c, &page) {
		return
	}

	list, total, err := h.pubSvc.List(c.Request.Context(), actor, &page)
	if err != nil {
		fail(c, err)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// Get 公示详情
// GET /api/v1/publications/:id
func (h *PublicationHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	p, err := h.pubSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, p)
}

// Export 导出公示结果表
// GET /api/v1/publications/:id/export
func (h *PublicationHandler) Export(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	buf, filename, err := h.pubSvc.Export(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Insight 洞察摘要
// GET /api/v1/evaluations/:id/insight
func (h *PublicationHandler) Insight(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	in, err := h.insightSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, in)
}

// RegenerateInsight 重新生成洞察摘要
// POST /api/v1/evaluations/:id/insight/regenerate
func (h *PublicationHandler) RegenerateInsight(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	in, err := h.insightSvc.Regenerate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, in)
}
