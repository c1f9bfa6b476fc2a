// Package ai OpenAI 兼容的 chat/completions 评分服务客户端
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/metrics"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/remote"
)

// Provider AI 评分服务
type Provider interface {
	// Complete 发送系统提示词与用户提示词，返回模型输出文本
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client chat/completions 客户端
type Client struct {
	http        *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	retry       config.RetryConfig
	logger      *zap.Logger
}

// NewClient 创建 AI 客户端
func NewClient(cfg *config.AIConfig, logger *zap.Logger) *Client {
	return &Client{
		http:        remote.NewHTTPClient(cfg.ConnectTimeout, cfg.Timeout),
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		retry:       cfg.Retry,
		logger:      logger,
	}
}

// Complete 调用模型；超时、传输错误与 5xx 按退避策略重试，4xx 不重试
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("序列化 AI 请求失败: %w", err)
	}

	var text string
	err = remote.Retry(ctx, c.retry, func(attempt int) error {
		out, err := c.post(ctx, body)
		if err != nil {
			return remote.Classify(err)
		}
		text = out
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		metrics.RecordRetry("ai")
		c.logger.Warn("AI 调用失败，准备重试",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		if remote.IsTransient(err) {
			return "", pkgerrors.Wrap(pkgerrors.ErrTransient, "AI 评分服务暂不可用", err)
		}
		return "", fmt.Errorf("AI 评分服务调用失败: %w", err)
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &remote.StatusError{Code: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("AI 响应格式错误: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("AI 响应缺少 choices")
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
