package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// Response 统一响应结构（与 API 文档约定一致）
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Accepted 202 已受理，后台继续执行
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Code:    0,
		Message: "accepted",
		Data:    data,
	})
}

// OKPage 200 分页成功
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}

// ── 业务错误映射 ──

// 业务错误码
const (
	CodeInvalidArgument   = 10001
	CodeUnauthorized      = 10002
	CodeForbidden         = 10003
	CodeTooManyRequests   = 10004
	CodeBodyTooLarge      = 10005
	CodeNotFound          = 10006
	CodeInvalidTransition = 20001
	CodeConflict          = 20002
	CodeImmutable         = 20003
	CodeAlreadyHandled    = 20004
	CodeScoreOutOfRange   = 20005
	CodeBadAIResponse     = 30001
	CodeChecksumMismatch  = 30002
	CodeTransient         = 30003
	CodeInternal          = 50000
)

type mapping struct {
	status int
	code   int
}

var kindMappings = map[error]mapping{
	pkgerrors.ErrInvalidArgument:   {http.StatusBadRequest, CodeInvalidArgument},
	pkgerrors.ErrUnauthorized:      {http.StatusUnauthorized, CodeUnauthorized},
	pkgerrors.ErrForbidden:         {http.StatusForbidden, CodeForbidden},
	pkgerrors.ErrNotFound:          {http.StatusNotFound, CodeNotFound},
	pkgerrors.ErrInvalidTransition: {http.StatusConflict, CodeInvalidTransition},
	pkgerrors.ErrConflict:          {http.StatusConflict, CodeConflict},
	pkgerrors.ErrImmutable:         {http.StatusConflict, CodeImmutable},
	pkgerrors.ErrAlreadyHandled:    {http.StatusConflict, CodeAlreadyHandled},
	pkgerrors.ErrScoreOutOfRange:   {http.StatusUnprocessableEntity, CodeScoreOutOfRange},
	pkgerrors.ErrBadAIResponse:     {http.StatusBadGateway, CodeBadAIResponse},
	pkgerrors.ErrChecksumMismatch:  {http.StatusBadRequest, CodeChecksumMismatch},
	pkgerrors.ErrTransient:         {http.StatusServiceUnavailable, CodeTransient},
}

// FromError 按错误分类写入响应；内部错误只返回通用提示
func FromError(c *gin.Context, err error) {
	m, ok := kindMappings[pkgerrors.KindOf(err)]
	if !ok {
		_ = c.Error(err)
		InternalError(c)
		return
	}
	Error(c, m.status, m.code, pkgerrors.SafeMessage(err))
}
