package usecase

import (
	"context"

	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/valueobject"
	domainErrors "github.com/diarist/server/pkg/errors"
	"go.uber.org/zap"
)

// DiscardInput 放弃草稿
type DiscardInput struct {
	ConversationID string `json:"conversationId"`
	JournalID      string `json:"journalId"`
	IsDraft        bool   `json:"isDraft"`
}

// DraftUseCase 放弃草稿：删除会话消息、会话本身，以及草稿状态的日记。
// 单步失败只记录日志，不影响后续步骤。
type DraftUseCase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	journals      repository.JournalRepository
	logger        *zap.Logger
}

// NewDraftUseCase 创建用例
func NewDraftUseCase(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	journals repository.JournalRepository,
	logger *zap.Logger,
) *DraftUseCase {
	return &DraftUseCase{conversations: conversations, messages: messages, journals: journals, logger: logger}
}

// Discard 执行放弃
func (uc *DraftUseCase) Discard(ctx context.Context, identity valueobject.Identity, in DiscardInput) {
	log := uc.logger.With(zap.String("user_id", identity.UserID()))

	if in.ConversationID != "" {
		uc.discardConversation(ctx, log, identity, in.ConversationID)
	}

	if in.JournalID != "" && in.IsDraft {
		journal, err := uc.journals.FindByID(ctx, in.JournalID)
		switch {
		case err != nil:
			log.Warn("Error loading draft journal", zap.String("journal_id", in.JournalID), zap.Error(err))
		case !journal.IsOwnedBy(identity.UserID()) || !journal.IsDraft():
			log.Warn("Refusing to delete journal that is not an owned draft", zap.String("journal_id", in.JournalID))
		default:
			if err := uc.journals.Delete(ctx, in.JournalID); err != nil {
				log.Error("Error deleting draft journal", zap.String("journal_id", in.JournalID), zap.Error(err))
			}
		}
	}
}

func (uc *DraftUseCase) discardConversation(ctx context.Context, log *zap.Logger, identity valueobject.Identity, conversationID string) {
	conv, err := uc.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if !domainErrors.IsNotFound(err) {
			log.Error("Error loading conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		}
		return
	}
	if !conv.IsOwnedBy(identity.UserID()) {
		log.Warn("Refusing to discard conversation of another user", zap.String("conversation_id", conversationID))
		return
	}

	// 先删子记录
	if err := uc.messages.DeleteByConversation(ctx, conversationID); err != nil {
		log.Error("Error deleting messages", zap.String("conversation_id", conversationID), zap.Error(err))
	}
	if err := uc.conversations.DeleteOwned(ctx, conversationID, identity.UserID()); err != nil {
		log.Error("Error deleting conversation", zap.String("conversation_id", conversationID), zap.Error(err))
	}
}
