package service

import (
	"context"
	"encoding/json"

	"github.com/diarist/server/internal/domain/conversation"
	domaintool "github.com/diarist/server/internal/domain/tool"
)

// TurnSource 模型轮次来源（流式）。一次调用对应一个轮次：
// 文本增量通过 onDelta 实时推送，完成后返回最终文本和工具调用。
type TurnSource interface {
	StreamTurn(ctx context.Context, req *TurnRequest, onDelta func(delta string)) (*StreamedTurn, error)
	// Name 返回供应商标识（openai、anthropic）
	Name() string
}

// TurnRequest 发给模型的请求
type TurnRequest struct {
	SystemPrompt string
	Messages     []conversation.ModelMessage
	Tools        []domaintool.Definition
	Model        string
	MaxTokens    int
}

// ToolCall 模型发起的一次工具调用
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// StreamedTurn 流结束后累积的结果
type StreamedTurn struct {
	Text      string
	ToolCalls []ToolCall
	ModelUsed string
}
