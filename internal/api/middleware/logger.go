package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
)

// Logger 请求日志中间件（基于 Zap 结构化日志），同时记录请求指标
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		// 指标按路由模板聚合，未匹配的路由统一计入 unmatched
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, route, statusCode, latency.Seconds())

		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if v, ok := c.Get(ContextActor); ok {
			if actor, ok := v.(model.Actor); ok {
				fields = append(fields, zap.String("user_id", actor.UserID), zap.String("role", string(actor.Role)))
			}
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		if statusCode >= 500 {
			logger.Error("请求处理失败", fields...)
		} else if statusCode >= 400 {
			logger.Warn("客户端错误", fields...)
		} else {
			logger.Info("请求完成", fields...)
		}
	}
}
