package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/redis"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// 上下文键
const (
	ContextActor    = "actor"
	ContextTokenJTI = "token_jti"
	ContextTokenExp = "token_exp"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，构造 Actor 注入上下文
// rdb 为 nil 时跳过已注销令牌检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, response.CodeUnauthorized, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 类型无效")
			c.Abort()
			return
		}

		role := model.Role(claims.Role)
		if !role.Valid() {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 角色无效")
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 不可用时降级放行
				logger.Warn("查询已注销令牌失败", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, response.CodeUnauthorized, "Token 已注销")
				c.Abort()
				return
			}
		}

		c.Set(ContextActor, model.NewActor(claims.UserID, claims.Name, role, claims.TeachingOfficeID))
		c.Set(ContextTokenJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(ContextTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RequireCap 能力校验中间件：具备任一能力即放行
// 细粒度的归属与状态校验仍由 Service 层完成
func RequireCap(caps ...model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextActor)
		actor, ok := v.(model.Actor)
		if !exists || !ok {
			response.Unauthorized(c, response.CodeUnauthorized, "未认证")
			c.Abort()
			return
		}

		for _, cp := range caps {
			if actor.Can(cp) {
				c.Next()
				return
			}
		}

		response.Forbidden(c, response.CodeForbidden, "无权限访问")
		c.Abort()
	}
}
