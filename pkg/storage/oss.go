package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

// OSSStore 阿里云 OSS 存储
type OSSStore struct {
	bucket *oss.Bucket
}

// NewOSSStore 连接 OSS 并打开 bucket
func NewOSSStore(cfg *config.OSSConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("创建 OSS 客户端失败: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("打开 OSS bucket 失败: %w", err)
	}
	return &OSSStore{bucket: bucket}, nil
}

// Put 上传对象，meta 写入 x-oss-meta-*
func (s *OSSStore) Put(ctx context.Context, path string, r io.Reader, contentType string, meta map[string]string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
	}
	for k, v := range meta {
		opts = append(opts, oss.Meta(k, v))
	}
	return s.bucket.PutObject(path, r, opts...)
}

// Get 下载对象
func (s *OSSStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	ok, err := s.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrObjectNotFound
	}
	return s.bucket.GetObject(path, oss.WithContext(ctx))
}

// Exists HEAD 检查对象是否存在
func (s *OSSStore) Exists(ctx context.Context, path string) (bool, error) {
	return s.bucket.IsObjectExist(path, oss.WithContext(ctx))
}

// Delete 删除对象；OSS 对不存在的对象同样返回成功
func (s *OSSStore) Delete(ctx context.Context, path string) error {
	return s.bucket.DeleteObject(path, oss.WithContext(ctx))
}
