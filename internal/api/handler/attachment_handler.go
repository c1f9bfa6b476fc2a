package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// AttachmentHandler 附件模块 HTTP 处理器（直接上传、下载、删除、归类）
type AttachmentHandler struct {
	attSvc service.AttachmentService
}

// NewAttachmentHandler 创建 AttachmentHandler
func NewAttachmentHandler(attSvc service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attSvc: attSvc}
}

// Upload multipart 直接上传
// POST /api/v1/evaluations/:id/attachments  (form: file, indicator)
func (h *AttachmentHandler) Upload(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		bindFailed(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, response.CodeInvalidArgument, "无法读取上传文件")
		return
	}
	defer f.Close()

	a, err := h.attSvc.Upload(c.Request.Context(), actor, service.UploadInput{
		EvaluationID: c.Param("id"),
		Indicator:    c.PostForm("indicator"),
		FileName:     fh.Filename,
		FileType:     fh.Header.Get("Content-Type"),
		FileSize:     fh.Size,
	}, f)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, a)
}

// List 评估的附件列表
// GET /api/v1/evaluations/:id/attachments
func (h *AttachmentHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.attSvc.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, list)
}

// Download 下载附件
// GET /api/v1/attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	a, rc, err := h.attSvc.Open(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, a.FileSize, a.FileType, rc, map[string]string{
		"Content-Disposition": "attachment; filename*=UTF-8''" + url.QueryEscape(a.FileName),
	})
}

// Delete 删除附件（仅草稿或被驳回时）
// DELETE /api/v1/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.attSvc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, nil)
}

// Reclassify 手工调整附件归类
// PUT /api/v1/attachments/:id/indicator
func (h *AttachmentHandler) Reclassify(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.ReclassifyRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.attSvc.Reclassify(c.Request.Context(), actor, c.Param("id"), req.Indicator)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, a)
}
