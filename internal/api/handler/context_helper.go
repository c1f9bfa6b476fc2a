package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/middleware"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// MustGetActor 从 Gin 上下文中安全提取调用方。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetActor(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get(middleware.ContextActor)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	if !ok || actor.UserID == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return model.Actor{}, false
	}
	return actor, true
}

// tokenMeta 当前 Access Token 的 jti 与过期时间
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.ContextTokenJTI)
	exp, _ := c.Get(middleware.ContextTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// bindJSON 绑定请求体；失败时写入 400（超限为 413）并返回 false
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		bindFailed(c, err)
		return false
	}
	return true
}

// bindOptionalJSON 请求体可为空（如只携带可选 version 的状态操作）
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, req)
}

// bindQuery 绑定查询参数
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		bindFailed(c, err)
		return false
	}
	return true
}

func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidArgument, "参数校验失败",
			verrs[0].Field()+" 不满足 "+verrs[0].Tag())
		return
	}
	response.BadRequest(c, response.CodeInvalidArgument, "参数校验失败")
}

// intParam 解析路径中的整数参数
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		response.BadRequest(c, response.CodeInvalidArgument, name+" 必须是整数")
		return 0, false
	}
	return v, true
}

// fail 将 Service 错误映射为统一响应
func fail(c *gin.Context, err error) {
	response.FromError(c, err)
}
