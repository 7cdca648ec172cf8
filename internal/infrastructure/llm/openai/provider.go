// Package openai 基于 openai-go 的流式轮次来源，兼容 OpenAI 协议的服务（DeepSeek、vLLM 等）都可使用
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	llm "github.com/diarist/server/internal/infrastructure/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

func init() {
	llm.RegisterFactory("openai", func(cfg llm.ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
		return New(cfg, logger), nil
	})
}

// Provider OpenAI 轮次来源
type Provider struct {
	client    openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// New 创建供应商
func New(cfg llm.ProviderConfig, logger *zap.Logger) *Provider {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		logger.Info("No API key configured for openai provider, using OPENAI_API_KEY from environment")
	}

	return &Provider{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.With(zap.String("provider", "openai")),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return "openai" }

// StreamTurn 流式生成一个轮次
func (p *Provider) StreamTurn(ctx context.Context, req *service.TurnRequest, onDelta func(string)) (*service.StreamedTurn, error) {
	params := p.buildParams(req)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" && onDelta != nil {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	turn := &service.StreamedTurn{ModelUsed: acc.Model}
	if turn.ModelUsed == "" {
		turn.ModelUsed = params.Model
	}
	if len(acc.Choices) == 0 {
		return turn, nil
	}

	msg := acc.Choices[0].Message
	turn.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		args := strings.TrimSpace(tc.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		turn.ToolCalls = append(turn.ToolCalls, service.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}

	p.logger.Debug("Turn streamed",
		zap.String("model", turn.ModelUsed),
		zap.Int("text_len", len(turn.Text)),
		zap.Int("tool_calls", len(turn.ToolCalls)),
	)
	return turn, nil
}

func (p *Provider) buildParams(req *service.TurnRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: convertMessages(req.SystemPrompt, req.Messages),
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}
	return params
}

func convertMessages(system string, msgs []conversation.ModelMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		switch m.Role {
		case valueobject.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Text))
		default:
			out = append(out, openai.UserMessage(m.Text))
		}
	}
	return out
}

func convertTools(defs []domaintool.Definition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.Parameters),
			},
		})
	}
	return tools
}
