package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/handler"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/middleware"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/redis"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
	// 文件类请求在单文件上限之外预留 multipart 表单开销
	multipartOverhead = 1 << 20
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())

	jsonLimit := middleware.BodyLimit(cfg.Server.MaxBodyBytes)
	fileLimit := middleware.BodyLimit(cfg.Upload.MaxFileSize + multipartOverhead)

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── 校长办公会接收端（无 JWT，完整性由校验和保证） ──
	if cfg.Server.ReceiverEnabled {
		r.POST("/receive-sync-data", jsonLimit, h.Sync.Receive)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", jsonLimit)
		{
			auth.POST("/login", middleware.RateLimit(rdb, loginRateLimit, loginRateWindow, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))

		// 文件上传（大请求体）
		files := authorized.Group("", fileLimit)
		{
			files.POST("/evaluations/:id/attachments", middleware.RequireCap(model.CapEditEvaluation), h.Attachment.Upload)
			files.PUT("/uploads/:id/chunks/:index", middleware.RequireCap(model.CapEditEvaluation), h.Upload.PutChunk)
		}

		api := authorized.Group("", jsonLimit)
		{
			// 认证模块（需要认证）
			api.POST("/auth/logout", h.Auth.Logout)
			api.GET("/auth/me", h.Auth.Me)
			api.PUT("/auth/password", h.Auth.ChangePassword)

			api.GET("/workflow/transitions", h.Evaluation.Transitions)

			// 自评表
			evaluations := api.Group("/evaluations")
			{
				evaluations.POST("", middleware.RequireCap(model.CapEditEvaluation), h.Evaluation.Create)
				evaluations.GET("", h.Evaluation.List)
				evaluations.GET("/:id", h.Evaluation.Get)
				evaluations.PUT("/:id/content", middleware.RequireCap(model.CapEditEvaluation), h.Evaluation.SaveContent)
				evaluations.POST("/:id/submit", middleware.RequireCap(model.CapSubmitEvaluation), h.Evaluation.Submit)
				evaluations.POST("/:id/unlock", middleware.RequireCap(model.CapUnlockEvaluation), h.Evaluation.Unlock)
				evaluations.GET("/:id/history", h.Evaluation.History)
				evaluations.GET("/:id/attachments", h.Attachment.List)

				// 评分
				evaluations.POST("/:id/ai-score", middleware.RequireCap(model.CapTriggerAI), h.Scoring.TriggerAI)
				evaluations.GET("/:id/anomalies", h.Scoring.ListAnomalies)
				evaluations.POST("/:id/anomalies/:anomalyId/handle", middleware.RequireCap(model.CapHandleAnomaly), h.Scoring.HandleAnomaly)
				evaluations.POST("/:id/manual-scores", middleware.RequireCap(model.CapManualScore), h.Scoring.SubmitManual)
				evaluations.POST("/:id/final-score", middleware.RequireCap(model.CapFinalize), h.Scoring.Finalize)
				evaluations.GET("/:id/scores", h.Scoring.Summary)

				// 审定驳回后重新报送
				evaluations.POST("/:id/resubmit", middleware.RequireCap(model.CapFinalize), h.Approval.Resubmit)

				// 洞察摘要
				evaluations.GET("/:id/insight", h.Publication.Insight)
				evaluations.POST("/:id/insight/regenerate", middleware.RequireCap(model.CapPublish), h.Publication.RegenerateInsight)
			}

			api.GET("/ai-tasks/:id", h.Scoring.GetAITask)

			// 附件
			attachments := api.Group("/attachments")
			{
				attachments.GET("/:id/download", h.Attachment.Download)
				attachments.DELETE("/:id", middleware.RequireCap(model.CapEditEvaluation), h.Attachment.Delete)
				attachments.PUT("/:id/indicator", middleware.RequireCap(model.CapHandleAnomaly), h.Attachment.Reclassify)
			}

			// 分片上传
			uploads := api.Group("/uploads", middleware.RequireCap(model.CapEditEvaluation))
			{
				uploads.POST("/init", h.Upload.Init)
				uploads.POST("/:id/complete", h.Upload.Complete)
				uploads.GET("/:id", h.Upload.Status)
			}

			// 校长办公会审定
			approvals := api.Group("/approvals")
			{
				approvals.GET("", middleware.RequireCap(model.CapViewAll), h.Approval.List)
				approvals.POST("/approve", middleware.RequireCap(model.CapApprove), h.Approval.Approve)
				approvals.POST("/reject", middleware.RequireCap(model.CapApprove), h.Approval.Reject)
			}

			// 公示与分发
			publications := api.Group("/publications")
			{
				publications.POST("", middleware.RequireCap(model.CapPublish), h.Publication.Publish)
				publications.GET("", middleware.RequireCap(model.CapViewAll), h.Publication.List)
				publications.GET("/:id", middleware.RequireCap(model.CapViewAll), h.Publication.Get)
				publications.GET("/:id/export", middleware.RequireCap(model.CapViewAll), h.Publication.Export)
				publications.POST("/:id/distribute", middleware.RequireCap(model.CapDistribute), h.Publication.Distribute)
			}

			// 同步到校长办公会
			sync := api.Group("/sync/tasks", middleware.RequireCap(model.CapSync))
			{
				sync.POST("", h.Sync.Start)
				sync.GET("", h.Sync.List)
				sync.GET("/:id", h.Sync.Get)
				sync.POST("/:id/retry", h.Sync.Retry)
			}

			// 审计日志
			api.GET("/operation-logs", middleware.RequireCap(model.CapViewAudit), h.Audit.List)
		}
	}

	return r
}
