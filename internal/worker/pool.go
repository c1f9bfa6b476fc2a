// Package worker 有界后台任务池（AI 评分、同步任务）
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
)

// ErrPoolClosed 任务池已关闭
var ErrPoolClosed = errors.New("后台任务池已关闭")

// Job 后台任务；ctx 绑定服务生命周期而非请求
type Job func(ctx context.Context)

// Pool 固定并发的任务池
type Pool struct {
	base    context.Context
	cancel  context.CancelFunc
	sem     chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *zap.Logger
}

// NewPool 创建任务池；size<=0 时为 1，timeout<=0 表示不限时
func NewPool(size int, timeout time.Duration, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		base:    ctx,
		cancel:  cancel,
		sem:     make(chan struct{}, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Submit 提交任务，立即返回；任务在空闲槽位上运行
func (p *Pool) Submit(name string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	metrics.WorkerJobStarted()
	go func() {
		defer p.wg.Done()
		defer metrics.WorkerJobFinished()

		select {
		case p.sem <- struct{}{}:
		case <-p.base.Done():
			p.logger.Warn("任务池关闭，放弃未开始的任务", zap.String("job", name))
			return
		}
		defer func() { <-p.sem }()

		ctx := p.base
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(p.base, p.timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("后台任务 panic", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		job(ctx)
	}()
	return nil
}

// Wait 等待已提交任务全部结束
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown 拒绝新任务并等待在途任务，超时后取消其上下文
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
