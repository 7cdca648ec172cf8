// Package blobstore 保存生成的图片并返回可公开访问的 URL
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store 对象存储
type Store interface {
	// Put 写入对象并返回公开 URL
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// GeneratedImageKey 生成图片的对象键：generated/<毫秒时间戳>_<随机串>.<ext>
func GeneratedImageKey(now time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("generated/%d_%s.%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}

// ExtensionFor 由 Content-Type 推断扩展名
func ExtensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
