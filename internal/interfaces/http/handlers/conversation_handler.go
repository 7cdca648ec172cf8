package handlers

import (
	"context"
	"net/http"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HistoryReplayer 回放会话
type HistoryReplayer interface {
	Replay(ctx context.Context, identity valueobject.Identity, conversationID string) ([]conversation.RuntimeTurnMessage, error)
}

// ConversationHandler 会话历史
type ConversationHandler struct {
	history HistoryReplayer
	logger  *zap.Logger
}

// NewConversationHandler 创建处理器
func NewConversationHandler(history HistoryReplayer, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{history: history, logger: logger}
}

// Messages GET /api/v1/conversations/:id/messages
func (h *ConversationHandler) Messages(c *gin.Context) {
	id := c.Param("id")
	messages, err := h.history.Replay(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversationId": id,
		"messages":       messages,
	})
}
