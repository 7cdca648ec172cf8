package service

import (
	"context"
	"time"

	"github.com/diarist/server/internal/domain/valueobject"
)

// TurnOutcome 轮次结束方式
type TurnOutcome string

const (
	TurnCompleted TurnOutcome = "completed"
	TurnCancelled TurnOutcome = "cancelled" // 客户端断开或超时，不持久化
	TurnFailed    TurnOutcome = "failed"
)

// TurnHook 轮次生命周期钩子。钩子同步执行，需保持轻量。
// 嵌入 NoOpHook 只实现需要的方法。
type TurnHook interface {
	// OnTurnFinished 模型轮次结束（无论成功与否）
	OnTurnFinished(ctx context.Context, provider string, outcome TurnOutcome, elapsed time.Duration)

	// AfterToolCall 工具执行完成
	AfterToolCall(ctx context.Context, toolName string, success bool)

	// OnRecordPersisted 一条记录写入成功
	OnRecordPersisted(ctx context.Context, contentType valueobject.ContentType)

	// OnStoreWriteFailure 一条记录写入失败（轮次继续）
	OnStoreWriteFailure(ctx context.Context, contentType valueobject.ContentType, err error)

	// OnMalformedReplay 回放时遇到损坏的记录
	OnMalformedReplay(ctx context.Context, count int)
}

// NoOpHook provides a default no-op implementation of all hooks.
type NoOpHook struct{}

func (NoOpHook) OnTurnFinished(_ context.Context, _ string, _ TurnOutcome, _ time.Duration) {}

func (NoOpHook) AfterToolCall(_ context.Context, _ string, _ bool) {}

func (NoOpHook) OnRecordPersisted(_ context.Context, _ valueobject.ContentType) {}

func (NoOpHook) OnStoreWriteFailure(_ context.Context, _ valueobject.ContentType, _ error) {}

func (NoOpHook) OnMalformedReplay(_ context.Context, _ int) {}

// HookChain aggregates multiple hooks; all hooks are called in order.
type HookChain struct {
	hooks []TurnHook
}

// NewHookChain creates a hook chain from the given hooks.
func NewHookChain(hooks ...TurnHook) *HookChain {
	return &HookChain{hooks: hooks}
}

// Add appends a hook to the chain.
func (c *HookChain) Add(h TurnHook) {
	c.hooks = append(c.hooks, h)
}

func (c *HookChain) OnTurnFinished(ctx context.Context, provider string, outcome TurnOutcome, elapsed time.Duration) {
	for _, h := range c.hooks {
		h.OnTurnFinished(ctx, provider, outcome, elapsed)
	}
}

func (c *HookChain) AfterToolCall(ctx context.Context, toolName string, success bool) {
	for _, h := range c.hooks {
		h.AfterToolCall(ctx, toolName, success)
	}
}

func (c *HookChain) OnRecordPersisted(ctx context.Context, contentType valueobject.ContentType) {
	for _, h := range c.hooks {
		h.OnRecordPersisted(ctx, contentType)
	}
}

func (c *HookChain) OnStoreWriteFailure(ctx context.Context, contentType valueobject.ContentType, err error) {
	for _, h := range c.hooks {
		h.OnStoreWriteFailure(ctx, contentType, err)
	}
}

func (c *HookChain) OnMalformedReplay(ctx context.Context, count int) {
	for _, h := range c.hooks {
		h.OnMalformedReplay(ctx, count)
	}
}

var _ TurnHook = (*HookChain)(nil)
