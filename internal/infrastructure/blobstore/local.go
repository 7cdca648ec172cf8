package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 本地目录实现，由 HTTP 服务在 /uploads 下提供静态访问
type LocalStore struct {
	dir           string
	publicBaseURL string
}

// NewLocalStore 创建本地存储
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, publicBaseURL: publicBaseURL}, nil
}

// Dir 返回根目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put 写入文件
func (s *LocalStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	path := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return joinURL(s.publicBaseURL, filepath.ToSlash(clean)), nil
}
