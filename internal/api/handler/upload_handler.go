package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// UploadHandler 分片上传 HTTP 处理器
type UploadHandler struct {
	uploadSvc service.UploadService
}

// NewUploadHandler 创建 UploadHandler
func NewUploadHandler(uploadSvc service.UploadService) *UploadHandler {
	return &UploadHandler{uploadSvc: uploadSvc}
}

// Init 初始化上传会话
// POST /api/v1/uploads/init
func (h *UploadHandler) Init(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.InitUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.uploadSvc.Init(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, st)
}

// PutChunk 上传单个分片，请求体为分片原始字节
// PUT /api/v1/uploads/:id/chunks/:index
func (h *UploadHandler) PutChunk(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	index, ok := intParam(c, "index")
	if !ok {
		return
	}

	st, err := h.uploadSvc.PutChunk(c.Request.Context(), actor, c.Param("id"), index, c.Request.Body)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, st)
}

// Complete 拼装分片并登记附件
// POST /api/v1/uploads/:id/complete
func (h *UploadHandler) Complete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	a, err := h.uploadSvc.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, a)
}

// Status 查询会话进度（断点续传）
// GET /api/v1/uploads/:id
func (h *UploadHandler) Status(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	st, err := h.uploadSvc.Status(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, st)
}
