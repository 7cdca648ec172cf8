package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/infrastructure/imagegen"
	"go.uber.org/zap"
)

// GenerateImageTool generateImage：为日记生成缩略图。
// 生成失败时返回占位图而不是错误，模型仍会得到一个可展示的结果。
type GenerateImageTool struct {
	images      imagegen.Generator
	placeholder string
	schema      map[string]interface{}
	logger      *zap.Logger
}

// NewGenerateImageTool 创建工具
func NewGenerateImageTool(images imagegen.Generator, placeholderURL string, logger *zap.Logger) *GenerateImageTool {
	if placeholderURL == "" {
		placeholderURL = imagegen.DefaultPlaceholderURL
	}
	return &GenerateImageTool{
		images:      images,
		placeholder: placeholderURL,
		schema:      domaintool.SchemaFor[domaintool.GenerateImageInput](),
		logger:      logger.With(zap.String("tool", domaintool.NameGenerateImage)),
	}
}

func (t *GenerateImageTool) Name() string { return domaintool.NameGenerateImage }

func (t *GenerateImageTool) Description() string {
	return "Generate a thumbnail image for the diary entry from a short visual description. " +
		"Use it when the user asks for a picture or when the entry is finished and has no thumbnail."
}

func (t *GenerateImageTool) Schema() map[string]interface{} { return t.schema }

// Execute 生成图片
func (t *GenerateImageTool) Execute(ctx context.Context, args json.RawMessage) (*domaintool.Result, error) {
	var in domaintool.GenerateImageInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid generateImage arguments: %w", err)
	}
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, fmt.Errorf("generateImage requires a prompt")
	}

	out := domaintool.ImageOutput{Prompt: in.Prompt}
	res, err := t.images.Generate(ctx, in.Prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Warn("Image generation failed, using placeholder", zap.Error(err))
		out.URL = t.placeholder
	} else {
		out.URL = res.URL
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &domaintool.Result{Output: raw}, nil
}
