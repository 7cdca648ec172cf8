package handlers

import (
	"context"
	"net/http"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatRunner 聊天轮次（SSE 与 websocket 共用）
type ChatRunner interface {
	Prepare(ctx context.Context, identity valueobject.Identity, req *usecase.ChatRequest) error
	Execute(ctx context.Context, req *usecase.ChatRequest, sink usecase.TurnSink) (*usecase.ChatResult, error)
}

// StreamObserver 统计打开的流
type StreamObserver interface {
	StreamOpened()
	StreamClosed()
}

type noopObserver struct{}

func (noopObserver) StreamOpened() {}
func (noopObserver) StreamClosed() {}

// ChatHandler POST /api/v1/chat，以 SSE 推送轮次事件
type ChatHandler struct {
	chat    ChatRunner
	streams StreamObserver
	logger  *zap.Logger
}

// NewChatHandler 创建处理器，streams 可以为 nil
func NewChatHandler(chat ChatRunner, streams StreamObserver, logger *zap.Logger) *ChatHandler {
	if streams == nil {
		streams = noopObserver{}
	}
	return &ChatHandler{chat: chat, streams: streams, logger: logger.With(zap.String("handler", "chat"))}
}

// sseSink 把轮次事件写成 SSE
type sseSink struct {
	c *gin.Context
}

func (s sseSink) TextDelta(delta string) {
	s.c.SSEvent("text_delta", gin.H{"content": delta})
	s.c.Writer.Flush()
}

func (s sseSink) ToolResult(ev usecase.ToolResultEvent) {
	s.c.SSEvent("tool_result", ev)
	s.c.Writer.Flush()
}

// Chat 处理一次聊天。校验失败时返回普通 JSON 错误；流开始之后错误以 error 事件发送。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req usecase.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.chat.Prepare(ctx, identity(c), &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	h.streams.StreamOpened()
	defer h.streams.StreamClosed()

	result, err := h.chat.Execute(ctx, &req, sseSink{c: c})
	if err != nil {
		if ctx.Err() != nil {
			// 客户端已断开
			return
		}
		c.SSEvent("error", gin.H{
			"error":          err.Error(),
			"status":         StatusFor(err),
			"conversationId": req.ConversationID,
		})
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", result)
	c.Writer.Flush()
}
