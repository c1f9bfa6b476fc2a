package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// SyncHandler 校长办公会同步 HTTP 处理器（发送端与接收端）
type SyncHandler struct {
	syncSvc service.SyncService
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(syncSvc service.SyncService) *SyncHandler {
	return &SyncHandler{syncSvc: syncSvc}
}

// Start 发起同步，任务在后台执行
// POST /api/v1/sync/tasks
func (h *SyncHandler) Start(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.SyncRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.syncSvc.Start(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Accepted(c, task)
}

// Retry 重试失败的同步任务
// POST /api/v1/sync/tasks/:id/retry
func (h *SyncHandler) Retry(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	task, err := h.syncSvc.Retry(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Accepted(c, task)
}

// List 同步任务列表
// GET /api/v1/sync/tasks
func (h *SyncHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	var req dto.SyncListRequest
	if !bindQuery(c, &req) {
		return
	}

	list, total, err := h.syncSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 同步任务详情
// GET /api/v1/sync/tasks/:id
func (h *SyncHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	task, err := h.syncSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, task)
}

// Receive 接收端：校验并登记同步数据包，应答 {status, message, received}
// POST /receive-sync-data  （无 JWT，完整性由校验和保证）
func (h *SyncHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		bindFailed(c, err)
		return
	}

	ack, err := h.syncSvc.Receive(c.Request.Context(), body,
		c.GetHeader(president.HeaderTaskID), c.GetHeader(president.HeaderChecksum))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}
