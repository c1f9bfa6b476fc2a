package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 本地文件系统存储，目录结构与对象路径一致
type LocalStore struct {
	root string
}

// NewLocalStore 创建本地存储并确保根目录存在
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("本地存储目录不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("对象路径不能为空")
	}
	// 以根目录为界，消除 .. 越界
	clean := filepath.Clean("/" + path)
	return filepath.Join(s.root, clean), nil
}

// Put 写入临时文件后原子重命名；元数据写入同名 .meta.json
func (s *LocalStore) Put(_ context.Context, path string, r io.Reader, contentType string, meta map[string]string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	m := map[string]string{"content_type": contentType}
	for k, v := range meta {
		m[k] = v
	}
	b, _ := json.Marshal(m)
	return os.WriteFile(full+".meta.json", b, 0o644)
}

// Get 打开对象文件
func (s *LocalStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// Exists 判断对象文件是否存在
func (s *LocalStore) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Delete 删除对象文件及其元数据
func (s *LocalStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Remove(full + ".meta.json"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func newBytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
