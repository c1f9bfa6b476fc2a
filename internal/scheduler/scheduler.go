// Package scheduler 周期性维护任务：清理过期上传会话、判定超时的同步任务
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

// UploadCleaner 清理过期上传会话
type UploadCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// SyncSweeper 判定超时的同步任务
type SyncSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

// jobTimeout 单次维护任务的执行上限
const jobTimeout = 2 * time.Minute

// Scheduler 基于 cron 表达式（含秒）的维护任务调度器
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New 按配置注册维护任务；表达式非法时返回错误
func New(cfg *config.SchedulerConfig, uploads UploadCleaner, syncs SyncSweeper, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int64, error)
	}{
		{"upload_cleanup", cfg.UploadCleanupCron, func(ctx context.Context) (int64, error) {
			n, err := uploads.CleanupExpired(ctx)
			return int64(n), err
		}},
		{"sync_sweep", cfg.SyncSweepCron, syncs.SweepStale},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		name, run := j.name, j.run
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(name, run) }); err != nil {
			return nil, fmt.Errorf("注册定时任务 %s 失败: %w", name, err)
		}
		logger.Info("定时任务已注册", zap.String("job", name), zap.String("spec", j.spec))
	}
	return s, nil
}

func (s *Scheduler) runJob(name string, run func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := run(ctx)
	if err != nil {
		s.logger.Error("定时任务执行失败", zap.String("job", name), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("定时任务完成",
			zap.String("job", name),
			zap.Int64("affected", n),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() { s.cron.Start() }

// Entries 已注册任务数
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
