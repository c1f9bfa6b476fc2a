// Package storage 附件字节的对象存储抽象
package storage

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("对象不存在")

// ObjectStore 对象存储接口
// path 全局唯一；Get 返回的流由调用方关闭
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string, meta map[string]string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	// Delete 删除对象；对象不存在时不报错
	Delete(ctx context.Context, path string) error
}

// New 按配置创建对象存储；OSS 且开启 fallback_local 时写失败回落本地目录
func New(cfg *config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	local, err := NewLocalStore(cfg.LocalDir)
	if err != nil {
		return nil, err
	}
	if cfg.Backend != "oss" {
		return local, nil
	}

	remote, err := NewOSSStore(&cfg.OSS)
	if err != nil {
		if !cfg.FallbackLocal {
			return nil, err
		}
		logger.Warn("OSS 初始化失败，附件将写入本地目录", zap.Error(err))
		return local, nil
	}
	if !cfg.FallbackLocal {
		return remote, nil
	}
	return NewFallbackStore(remote, local, logger), nil
}

// ── 主备存储 ──

// FallbackStore 主存储写入失败时改写备用存储，读取时依次查找
type FallbackStore struct {
	primary   ObjectStore
	secondary ObjectStore
	logger    *zap.Logger
}

// NewFallbackStore 创建主备存储
func NewFallbackStore(primary, secondary ObjectStore, logger *zap.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, secondary: secondary, logger: logger}
}

// Put 写入主存储，失败则写入备用存储
func (s *FallbackStore) Put(ctx context.Context, path string, r io.Reader, contentType string, meta map[string]string) error {
	// 主存储失败后需重放内容，先落到可重读的 Seeker
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return s.putBuffered(ctx, path, r, contentType, meta)
	}
	if err := s.primary.Put(ctx, path, rs, contentType, meta); err != nil {
		s.logger.Warn("主存储写入失败，回落备用存储", zap.String("path", path), zap.Error(err))
		if _, serr := rs.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
		return s.secondary.Put(ctx, path, rs, contentType, meta)
	}
	return nil
}

func (s *FallbackStore) putBuffered(ctx context.Context, path string, r io.Reader, contentType string, meta map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.Put(ctx, path, newBytesReader(data), contentType, meta)
}

// Get 优先读取主存储
func (s *FallbackStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.primary.Get(ctx, path)
	if err == nil {
		return rc, nil
	}
	return s.secondary.Get(ctx, path)
}

// Exists 任一存储存在即为存在
func (s *FallbackStore) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := s.primary.Exists(ctx, path)
	if err == nil && ok {
		return true, nil
	}
	return s.secondary.Exists(ctx, path)
}

// Delete 两侧都删除
func (s *FallbackStore) Delete(ctx context.Context, path string) error {
	perr := s.primary.Delete(ctx, path)
	serr := s.secondary.Delete(ctx, path)
	if perr != nil {
		return perr
	}
	return serr
}
