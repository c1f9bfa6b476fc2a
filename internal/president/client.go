package president

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/remote"
)

// Sender 向校长办公会投递数据包
type Sender interface {
	Send(ctx context.Context, taskID, sum string, body []byte) (*Ack, error)
}

// Ack 接收端应答
type Ack struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Received int    `json:"received,omitempty"`
}

// Client 同步发送端
type Client struct {
	http     *http.Client
	endpoint string
	retry    config.RetryConfig
	logger   *zap.Logger
}

// NewClient 创建同步客户端
func NewClient(cfg *config.SyncConfig, logger *zap.Logger) *Client {
	return &Client{
		http:     remote.NewHTTPClient(cfg.ConnectTimeout, cfg.Timeout),
		endpoint: cfg.Endpoint,
		retry:    cfg.Retry,
		logger:   logger,
	}
}

// Send POST 数据包；传输错误与 5xx 按退避策略重试
func (c *Client) Send(ctx context.Context, taskID, sum string, body []byte) (*Ack, error) {
	var ack *Ack
	err := remote.Retry(ctx, c.retry, func(attempt int) error {
		out, err := c.post(ctx, taskID, sum, body)
		if err != nil {
			return remote.Classify(err)
		}
		ack = out
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		metrics.RecordRetry("sync")
		c.logger.Warn("同步请求失败，准备重试",
			zap.String("task_id", taskID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		if remote.IsTransient(err) {
			return nil, pkgerrors.Wrap(pkgerrors.ErrTransient, "校长办公会接收端暂不可用", err)
		}
		return nil, err
	}
	return ack, nil
}

func (c *Client) post(ctx context.Context, taskID, sum string, body []byte) (*Ack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTaskID, taskID)
	req.Header.Set(HeaderChecksum, sum)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &remote.StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	var ack Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("接收端应答格式错误: %w", err)
	}
	if ack.Status != "success" {
		return nil, fmt.Errorf("接收端拒绝数据包: %s", ack.Message)
	}
	return &ack, nil
}
