package usecase

import (
	"context"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/service"
	"github.com/diarist/server/internal/domain/valueobject"
	domainErrors "github.com/diarist/server/pkg/errors"
	"go.uber.org/zap"
)

// HistoryUseCase 回放会话历史，恢复聊天界面
type HistoryUseCase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	hooks         service.TurnHook
	logger        *zap.Logger
}

// NewHistoryUseCase 创建用例
func NewHistoryUseCase(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	hooks service.TurnHook,
	logger *zap.Logger,
) *HistoryUseCase {
	if hooks == nil {
		hooks = service.NoOpHook{}
	}
	return &HistoryUseCase{conversations: conversations, messages: messages, hooks: hooks, logger: logger}
}

// Replay 返回会话的运行时消息列表。会话不属于调用者时按不存在处理。
func (uc *HistoryUseCase) Replay(ctx context.Context, identity valueobject.Identity, conversationID string) ([]conversation.RuntimeTurnMessage, error) {
	if identity.IsAnonymous() {
		return nil, domainErrors.NewUnauthorizedError("not authenticated")
	}
	conv, err := uc.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsOwnedBy(identity.UserID()) {
		return nil, domainErrors.NewNotFoundError("conversation not found")
	}

	records, err := uc.messages.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if bad := conversation.MalformedRecords(records); len(bad) > 0 {
		uc.logger.Warn("Malformed edit proposals in history",
			zap.String("conversation_id", conversationID),
			zap.Int("count", len(bad)),
		)
		uc.hooks.OnMalformedReplay(ctx, len(bad))
	}
	return conversation.Replay(records), nil
}
