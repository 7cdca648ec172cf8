// Package anthropic 基于 anthropic-sdk-go 的流式轮次来源
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	llm "github.com/diarist/server/internal/infrastructure/llm"
	"go.uber.org/zap"
)

// DefaultModel 未配置模型时使用
const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

const defaultMaxTokens = 2048

func init() {
	llm.RegisterFactory("anthropic", func(cfg llm.ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
		return New(cfg, logger), nil
	})
}

// Provider Anthropic 轮次来源
type Provider struct {
	client    anthropic.Client
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
	}

	model := cfg.Model
	if model == "" {
		model = string(DefaultModel)
	}
	return &Provider{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.With(zap.String("provider", "anthropic")),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return "anthropic" }

// StreamTurn 流式生成一个轮次，最终结果由 Message.Accumulate 拼出
func (p *Provider) StreamTurn(ctx context.Context, req *service.TurnRequest, onDelta func(string)) (*service.StreamedTurn, error) {
	params := p.buildParams(req)

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("anthropic accumulate: %w", err)
		}

		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" && onDelta != nil {
				onDelta(d.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	turn := &service.StreamedTurn{ModelUsed: string(message.Model)}
	if turn.ModelUsed == "" {
		turn.ModelUsed = string(params.Model)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			args := json.RawMessage(v.Input)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			turn.ToolCalls = append(turn.ToolCalls, service.ToolCall{ID: v.ID, Name: v.Name, Arguments: args})
		}
	}
	turn.Text = text.String()

	p.logger.Debug("Turn streamed",
		zap.String("model", turn.ModelUsed),
		zap.String("stop_reason", string(message.StopReason)),
		zap.Int("tool_calls", len(turn.ToolCalls)),
	)
	return turn, nil
}

func (p *Provider) buildParams(req *service.TurnRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  convertMessages(req.Messages),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}
	return params
}

// Messages API 要求首条消息来自 user
func convertMessages(msgs []conversation.ModelMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for i, m := range msgs {
		if i == 0 && m.Role == valueobject.RoleAssistant {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(conversation.ReconstructedPrompt)))
		}
		block := anthropic.NewTextBlock(m.Text)
		if m.Role == valueobject.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func convertTools(defs []domaintool.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		schema := anthropic.ToolInputSchemaParam{Properties: d.Parameters["properties"]}
		if req, ok := d.Parameters["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	return out
}
