package imagegen

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI 通过 Images API 生成图片。返回的 URL 是临时地址，需要 Rehost 转存。
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI 创建生成器
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = string(openai.ImageModelDallE3)
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

// Generate 生成一张 1024x1024 图片
func (g *OpenAI) Generate(ctx context.Context, prompt string) (ImageResult, error) {
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(g.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return ImageResult{}, fmt.Errorf("image service returned no data")
	}
	return ImageResult{URL: resp.Data[0].URL, Prompt: prompt}, nil
}
