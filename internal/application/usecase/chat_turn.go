package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/service"
	domaintool "github.com/diarist/server/internal/domain/tool"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/richtext"
	domainErrors "github.com/diarist/server/pkg/errors"
	"github.com/diarist/server/pkg/linediff"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToolRunner 执行模型发起的工具调用
type ToolRunner interface {
	Execute(ctx context.Context, call service.ToolCall) (conversation.ToolResult, error)
	Definitions() []domaintool.Definition
}

// ChatRequest 一次聊天请求
type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	JournalID      string `json:"journalId"`
	// EditorContent 编辑器当前正文（HTML），作为模型上下文，也用于生成修改建议的 diff
	EditorContent string `json:"editorContent"`
}

// ToolResultEvent 推送给客户端的工具结果
type ToolResultEvent struct {
	ToolName   string          `json:"toolName"`
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result"`
	Diff       []linediff.Line `json:"diff,omitempty"`
}

// TurnSink 接收流式事件（SSE 或 websocket）
type TurnSink interface {
	TextDelta(delta string)
	ToolResult(event ToolResultEvent)
}

// ChatResult 轮次结束后的摘要
type ChatResult struct {
	ConversationID string `json:"conversationId"`
	NextSeq        int64  `json:"seq"`
	Persisted      int    `json:"persisted"`
}

// ChatTurnUseCase 处理一个聊天轮次：记录用户消息、回放历史、流式生成、执行工具、持久化
type ChatTurnUseCase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	recorder      *TurnRecorder
	source        service.TurnSource
	tools         ToolRunner
	model         valueobject.ModelConfig
	hooks         service.TurnHook
	logger        *zap.Logger
}

// NewChatTurnUseCase 创建用例
func NewChatTurnUseCase(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	recorder *TurnRecorder,
	source service.TurnSource,
	tools ToolRunner,
	model valueobject.ModelConfig,
	hooks service.TurnHook,
	logger *zap.Logger,
) *ChatTurnUseCase {
	if hooks == nil {
		hooks = service.NoOpHook{}
	}
	return &ChatTurnUseCase{
		conversations: conversations,
		messages:      messages,
		recorder:      recorder,
		source:        source,
		tools:         tools,
		model:         model,
		hooks:         hooks,
		logger:        logger.With(zap.String("component", "chat_turn")),
	}
}

// Prepare 校验请求并确保会话存在且属于调用者。未给出会话ID时生成一个并写回 req。
func (uc *ChatTurnUseCase) Prepare(ctx context.Context, identity valueobject.Identity, req *ChatRequest) error {
	if identity.IsAnonymous() {
		return domainErrors.NewUnauthorizedError("not authenticated")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return domainErrors.NewInvalidInputError("message is required")
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	if err := conversation.EnsureConversationExists(ctx, uc.conversations, req.ConversationID, identity.UserID(), req.Message); err != nil {
		return err
	}
	conv, err := uc.conversations.FindByID(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	if !conv.IsOwnedBy(identity.UserID()) {
		return domainErrors.NewForbiddenError("conversation belongs to another user")
	}
	return nil
}

// Execute 运行轮次。调用前必须先 Prepare。
// 只有流和工具都正常结束才写入助手记录；取消或失败时什么都不写。
func (uc *ChatTurnUseCase) Execute(ctx context.Context, req *ChatRequest, sink TurnSink) (*ChatResult, error) {
	start := time.Now()
	log := uc.logger.With(zap.String("conversation_id", req.ConversationID))

	history, err := uc.messages.FindByConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	session, err := conversation.Open(ctx, uc.messages, req.ConversationID)
	if err != nil {
		return nil, err
	}

	// 记录一旦开始写入就不随客户端断开而中断
	persistCtx := context.WithoutCancel(ctx)

	// 写入失败不阻止本轮，seq 已经分配
	if _, err := uc.recorder.RecordUserMessage(persistCtx, session, req.Message); err != nil {
		log.Warn("Continuing turn without persisted user message", zap.Error(err))
	}

	replayed := conversation.Replay(history)
	if bad := conversation.MalformedRecords(history); len(bad) > 0 {
		ids := make([]string, 0, len(bad))
		for _, rec := range bad {
			ids = append(ids, rec.ID())
		}
		log.Warn("Replayed malformed edit proposals as placeholders", zap.Strings("record_ids", ids))
		uc.hooks.OnMalformedReplay(ctx, len(bad))
	}

	input := conversation.ReplayAsModelInput(replayed)
	input = appendUserMessage(input, req.Message)

	turn, err := uc.source.StreamTurn(ctx, &service.TurnRequest{
		SystemPrompt: uc.systemPrompt(req.EditorContent),
		Messages:     input,
		Tools:        uc.tools.Definitions(),
		Model:        uc.model.Model(),
		MaxTokens:    uc.model.MaxTokens(),
	}, sink.TextDelta)
	if err != nil {
		uc.finish(ctx, start, err)
		return nil, err
	}

	results := make([]conversation.ToolResult, 0, len(turn.ToolCalls))
	for _, call := range turn.ToolCalls {
		res, err := uc.tools.Execute(ctx, call)
		if err != nil {
			if ctx.Err() != nil {
				uc.finish(ctx, start, ctx.Err())
				return nil, ctx.Err()
			}
			continue
		}
		results = append(results, res)
		sink.ToolResult(uc.toolEvent(res, req.EditorContent))
	}

	if err := ctx.Err(); err != nil {
		uc.finish(ctx, start, err)
		return nil, err
	}

	persisted, err := uc.recorder.RecordTurn(persistCtx, session, conversation.ModelTurn{Text: turn.Text, ToolResults: results})
	if err != nil {
		log.Warn("Turn recorded with failures", zap.Int("persisted", len(persisted)), zap.Error(err))
	}

	uc.finish(ctx, start, nil)
	log.Info("Chat turn completed",
		zap.String("model", turn.ModelUsed),
		zap.Int("tool_results", len(results)),
		zap.Int("persisted", len(persisted)),
		zap.Int64("next_seq", session.NextSeq()),
	)
	return &ChatResult{ConversationID: req.ConversationID, NextSeq: session.NextSeq(), Persisted: len(persisted)}, nil
}

func (uc *ChatTurnUseCase) finish(ctx context.Context, start time.Time, err error) {
	outcome := service.TurnCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = service.TurnCancelled
		uc.logger.Info("Chat turn cancelled, nothing persisted for the model turn")
	default:
		outcome = service.TurnFailed
		uc.logger.Error("Chat turn failed", zap.String("provider", uc.source.Name()), zap.Error(err))
	}
	// ctx 可能已经取消，指标不依赖它
	uc.hooks.OnTurnFinished(context.WithoutCancel(ctx), uc.source.Name(), outcome, time.Since(start))
}

func (uc *ChatTurnUseCase) systemPrompt(editorContent string) string {
	prompt := uc.model.SystemPrompt()
	text := richtext.PlainText(editorContent)
	if text == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\nThe diary entry currently reads:\n---\n%s\n---", prompt, text)
}

func (uc *ChatTurnUseCase) toolEvent(res conversation.ToolResult, editorContent string) ToolResultEvent {
	ev := ToolResultEvent{ToolName: res.ToolName, ToolCallID: res.ToolCallID, Result: res.Output}
	if res.ToolName == domaintool.NameEditContent {
		if p, err := valueobject.ParseEditProposal(string(res.Output)); err == nil {
			ev.Diff = linediff.HTML(editorContent, p.Content)
		}
	}
	return ev
}

func appendUserMessage(input []conversation.ModelMessage, text string) []conversation.ModelMessage {
	if n := len(input); n > 0 && input[n-1].Role == valueobject.RoleUser {
		input[n-1].Text += "\n\n" + text
		return input
	}
	return append(input, conversation.ModelMessage{Role: valueobject.RoleUser, Text: text})
}
