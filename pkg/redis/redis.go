package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

const pingTimeout = 5 * time.Second

// Client 考核平台共享的 Redis 连接
// 保存已注销的访问令牌与登录限流计数，所有键都带 KeyPrefix 命名空间
type Client struct {
	rdb    *goredis.Client
	prefix string
	logger *zap.Logger
}

// NewClient 建立连接；Ping 不通时返回错误，由调用方决定是否降级
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接 Redis %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis 已就绪", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.String("prefix", cfg.KeyPrefix))
	return &Client{rdb: rdb, prefix: cfg.KeyPrefix, logger: logger}, nil
}

func (c *Client) key(kind, id string) string {
	return c.prefix + kind + ":" + id
}

// ── 已注销令牌 ──

// RevokeToken 记录已注销的访问令牌 jti，保留到令牌自然过期
func (c *Client) RevokeToken(ctx context.Context, jti string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key("revoked", jti), time.Now().UTC().Unix(), remaining).Err()
}

// IsRevoked 令牌 jti 是否已注销
func (c *Client) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key("revoked", jti)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ── 登录限流 ──

// CheckRateLimit 固定窗口计数，窗口内第 limit+1 次起拒绝
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := c.key("ratelimit", key)

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
