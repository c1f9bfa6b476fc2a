// Package remote 出站 HTTP 调用的公共设施：连接/总超时与有界指数退避重试
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

// NewHTTPClient 创建带连接超时与总超时的 HTTP 客户端（TLS 证书校验保持开启）
func NewHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	return &http.Client{Transport: transport, Timeout: timeout}
}

// StatusError 远端返回非 2xx
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("远端返回 HTTP %d: %s", e.Code, e.Body)
}

// Retryable 仅 5xx 可重试
func (e *StatusError) Retryable() bool { return e.Code >= 500 }

// Classify 将单次调用错误分为可重试与不可重试：
// 传输错误、超时与 5xx 可重试，4xx 与其他错误立即失败
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return err
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return backoff.Permanent(err)
}

// IsTransient 错误是否属于可重试类别（用于重试耗尽后的分类）
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *backoff.PermanentError
	return !errors.As(Classify(err), &perm)
}

// Retry 按策略执行 op，最多 MaxAttempts 次；op 应返回 Classify 处理后的错误
// onRetry 在每次等待前回调（attempt 从 1 开始）
func Retry(ctx context.Context, policy config.RetryConfig, op func(attempt int) error, onRetry func(attempt int, err error, wait time.Duration)) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		eb.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		eb.MaxInterval = policy.MaxInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(attempt)
	}, b, func(err error, wait time.Duration) {
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	})
}
