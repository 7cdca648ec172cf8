package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diarist/server/internal/infrastructure/blobstore"
)

const maxImageBytes = 20 << 20

// ErrImageTooLarge 下载的图片超过大小上限，调用方应回退到占位图
var ErrImageTooLarge = errors.New("generated image exceeds size limit")

// Rehosting 下载生成服务返回的临时图片并转存到对象存储
type Rehosting struct {
	inner  Generator
	store  blobstore.Store
	client   *http.Client
	maxBytes int64
	now      func() time.Time
}

// Rehost 包装生成器
func Rehost(inner Generator, store blobstore.Store, fetchTimeout time.Duration) *Rehosting {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Rehosting{
		inner:    inner,
		store:    store,
		client:   &http.Client{Timeout: fetchTimeout},
		maxBytes: maxImageBytes,
		now:      time.Now,
	}
}

// Generate 生成并转存
func (r *Rehosting) Generate(ctx context.Context, prompt string) (ImageResult, error) {
	res, err := r.inner.Generate(ctx, prompt)
	if err != nil {
		return ImageResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return ImageResult{}, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return ImageResult{}, fmt.Errorf("fetch generated image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ImageResult{}, fmt.Errorf("fetch generated image: status %d", resp.StatusCode)
	}

	if resp.ContentLength > r.maxBytes {
		return ImageResult{}, fmt.Errorf("fetch generated image: %d bytes: %w", resp.ContentLength, ErrImageTooLarge)
	}
	// 未声明长度时多读一个字节判断是否超限，截断的图片不能入库
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return ImageResult{}, fmt.Errorf("read generated image: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return ImageResult{}, fmt.Errorf("fetch generated image: %w", ErrImageTooLarge)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := blobstore.GeneratedImageKey(r.now(), blobstore.ExtensionFor(contentType))

	url, err := r.store.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return ImageResult{}, fmt.Errorf("store generated image: %w", err)
	}
	return ImageResult{URL: url, Prompt: res.Prompt}, nil
}
