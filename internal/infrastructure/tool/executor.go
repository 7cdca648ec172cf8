package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"go.uber.org/zap"
)

// Executor 工具执行器，把模型的工具调用变成可拆分的 ToolResult
type Executor struct {
	registry domaintool.Registry
	hooks    service.TurnHook
	logger   *zap.Logger
}

// NewExecutor 创建工具执行器
func NewExecutor(registry domaintool.Registry, hooks service.TurnHook, logger *zap.Logger) *Executor {
	if hooks == nil {
		hooks = service.NoOpHook{}
	}
	return &Executor{registry: registry, hooks: hooks, logger: logger}
}

// Execute 执行一次工具调用。未注册的工具返回错误，由调用方决定是否继续。
func (e *Executor) Execute(ctx context.Context, call service.ToolCall) (conversation.ToolResult, error) {
	start := time.Now()

	t, ok := e.registry.Get(call.Name)
	if !ok {
		e.logger.Warn("Tool not found", zap.String("tool", call.Name))
		e.hooks.AfterToolCall(ctx, call.Name, false)
		return conversation.ToolResult{}, fmt.Errorf("tool not found: %s", call.Name)
	}

	result, err := t.Execute(ctx, call.Arguments)
	duration := time.Since(start)
	if err != nil {
		e.logger.Error("Tool execution error",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		e.hooks.AfterToolCall(ctx, call.Name, false)
		return conversation.ToolResult{}, err
	}

	e.logger.Info("Tool execution completed",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.Duration("duration", duration),
	)
	e.hooks.AfterToolCall(ctx, call.Name, true)
	return conversation.ToolResult{
		ToolName:   call.Name,
		ToolCallID: call.ID,
		Output:     result.Output,
	}, nil
}

// Definitions 传给模型的工具定义
func (e *Executor) Definitions() []domaintool.Definition {
	return e.registry.List()
}
