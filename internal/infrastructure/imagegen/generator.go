// Package imagegen 为日记生成缩略图
package imagegen

import (
	"context"
)

// DefaultPlaceholderURL 生成失败时使用的占位图
const DefaultPlaceholderURL = "https://placehold.co/600x400?text=Error+Generating+Image"

// ImageResult 生成结果
type ImageResult struct {
	URL    string
	Prompt string
}

// Generator 图片生成器
type Generator interface {
	Generate(ctx context.Context, prompt string) (ImageResult, error)
}

// Placeholder 始终返回占位图，用于未配置生成服务的环境
type Placeholder struct {
	URL string
}

// Generate 返回占位图
func (p Placeholder) Generate(_ context.Context, prompt string) (ImageResult, error) {
	url := p.URL
	if url == "" {
		url = DefaultPlaceholderURL
	}
	return ImageResult{URL: url, Prompt: prompt}, nil
}
