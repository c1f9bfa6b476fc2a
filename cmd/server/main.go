package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/ai"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/handler"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/router"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/scheduler"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/worker"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/database"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
	applogger "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/logger"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/redis"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/storage"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()
	configPath := os.Getenv("TEVAL_CONFIG")

	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, level, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("receiver_enabled", cfg.Server.ReceiverEnabled),
	)

	// 2.1 日志级别热更新
	if err := config.Watch(configPath, func(next *config.Config) {
		if err := applogger.SetLevel(level, next.Log.Level); err != nil {
			logger.Warn("忽略无效的日志级别", zap.Error(err))
			return
		}
		logger.Info("日志级别已更新", zap.String("level", next.Log.Level))
	}); err != nil {
		logger.Warn("配置热更新未启用", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 不可用，令牌注销与登录限流将降级", zap.Error(err))
		rdb = nil
	}

	// 5. 附件存储
	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		logger.Fatal("初始化附件存储失败", zap.Error(err))
	}

	// 6. 后台任务池
	pool := worker.NewPool(cfg.Worker.Size, cfg.Worker.JobTimeout, logger)

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(service.Deps{
		Config:    cfg,
		Repo:      repo,
		JWT:       jwtMgr,
		Redis:     rdb,
		Store:     store,
		AI:        ai.NewClient(&cfg.AI, logger),
		President: president.NewClient(&cfg.Sync, logger),
		Pool:      pool,
		Logger:    logger,
	})
	h := handler.NewHandler(svc)

	// 8. 定时维护任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(&cfg.Scheduler, svc.Upload, svc.Sync, logger)
		if err != nil {
			logger.Fatal("初始化定时任务失败", zap.Error(err))
		}
		sched.Start()
		logger.Info("定时任务已启动", zap.Int("entries", sched.Entries()))
	}

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // 大文件上传
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("定时任务未在期限内结束", zap.Error(err))
		}
	}
	// 等待进行中的 AI 评分与同步任务
	if err := pool.Shutdown(ctx); err != nil {
		logger.Warn("后台任务未在期限内结束", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
