package usecase

import (
	"context"
	"strings"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/richtext"
	domainErrors "github.com/diarist/server/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateJournalInput 创建日记
type CreateJournalInput struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	ThumbnailURL   string `json:"thumbnailUrl"`
	ConversationID string `json:"conversationId"`
	IsDraft        bool   `json:"isDraft"`
}

// UpdateJournalInput 更新日记，nil 字段保持不变
type UpdateJournalInput struct {
	Title        *string `json:"title"`
	Content      *string `json:"content"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	IsDraft      *bool   `json:"isDraft"`
}

// JournalUseCase 日记 CRUD 与修改建议的接受
type JournalUseCase struct {
	journals      repository.JournalRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	logger        *zap.Logger
}

// NewJournalUseCase 创建用例
func NewJournalUseCase(
	journals repository.JournalRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	logger *zap.Logger,
) *JournalUseCase {
	return &JournalUseCase{journals: journals, conversations: conversations, messages: messages, logger: logger}
}

// Create 创建日记。只有会话里已有消息时才关联会话。
func (uc *JournalUseCase) Create(ctx context.Context, identity valueobject.Identity, in CreateJournalInput) (*entity.Journal, error) {
	journal, err := entity.NewJournal(uuid.NewString(), identity.UserID(), strings.TrimSpace(in.Title), richtext.Sanitize(in.Content))
	if err != nil {
		return nil, domainErrors.NewInvalidInputError(err.Error())
	}
	journal.SetThumbnail(in.ThumbnailURL)
	journal.MarkDraft(in.IsDraft)

	if in.ConversationID != "" {
		attach, err := uc.hasOwnedMessages(ctx, identity, in.ConversationID)
		if err != nil {
			return nil, err
		}
		if attach {
			journal.AttachConversation(in.ConversationID)
		}
	}

	if err := uc.journals.Save(ctx, journal); err != nil {
		return nil, err
	}
	uc.logger.Info("Journal created",
		zap.String("journal_id", journal.ID()),
		zap.Bool("draft", journal.IsDraft()),
		zap.Bool("has_conversation", journal.ConversationID() != ""),
	)
	return journal, nil
}

func (uc *JournalUseCase) hasOwnedMessages(ctx context.Context, identity valueobject.Identity, conversationID string) (bool, error) {
	conv, err := uc.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if !conv.IsOwnedBy(identity.UserID()) {
		return false, nil
	}
	_, ok, err := uc.messages.MaxSeq(ctx, conversationID)
	return ok, err
}

// List 当前用户的日记，最新的在前
func (uc *JournalUseCase) List(ctx context.Context, identity valueobject.Identity) ([]*entity.Journal, error) {
	return uc.journals.FindByOwner(ctx, identity.UserID())
}

// Get 读取一篇日记，别人的日记按不存在处理
func (uc *JournalUseCase) Get(ctx context.Context, identity valueobject.Identity, id string) (*entity.Journal, error) {
	journal, err := uc.journals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !journal.IsOwnedBy(identity.UserID()) {
		return nil, domainErrors.NewNotFoundError("journal not found")
	}
	return journal, nil
}

// Update 修改日记
func (uc *JournalUseCase) Update(ctx context.Context, identity valueobject.Identity, id string, in UpdateJournalInput) (*entity.Journal, error) {
	journal, err := uc.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	title, content := journal.Title(), journal.Content()
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		content = richtext.Sanitize(*in.Content)
	}
	journal.Update(title, content)
	if in.ThumbnailURL != nil {
		journal.SetThumbnail(*in.ThumbnailURL)
	}
	if in.IsDraft != nil {
		journal.MarkDraft(*in.IsDraft)
	}

	if err := uc.journals.Save(ctx, journal); err != nil {
		return nil, err
	}
	return journal, nil
}

// Delete 删除日记
func (uc *JournalUseCase) Delete(ctx context.Context, identity valueobject.Identity, id string) error {
	if _, err := uc.Get(ctx, identity, id); err != nil {
		return err
	}
	return uc.journals.Delete(ctx, id)
}

// AcceptProposal 把会话中的一条 edit-proposal 应用到日记
func (uc *JournalUseCase) AcceptProposal(ctx context.Context, identity valueobject.Identity, journalID, messageID string) (*entity.Journal, error) {
	journal, err := uc.Get(ctx, identity, journalID)
	if err != nil {
		return nil, err
	}

	rec, err := uc.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if journal.ConversationID() == "" || rec.ConversationID() != journal.ConversationID() {
		return nil, domainErrors.NewNotFoundError("proposal not found for this journal")
	}

	switch c := rec.Content().(type) {
	case valueobject.EditProposalContent:
		journal.ApplyEditProposal(richtext.Sanitize(c.Content), strings.TrimSpace(c.NewTitle))
	case valueobject.MalformedEditProposal:
		return nil, domainErrors.NewInvalidInputError("proposal is unreadable")
	default:
		return nil, domainErrors.NewInvalidInputError("message is not an edit proposal")
	}

	if err := uc.journals.Save(ctx, journal); err != nil {
		return nil, err
	}
	uc.logger.Info("Edit proposal accepted", zap.String("journal_id", journalID), zap.String("message_id", messageID))
	return journal, nil
}
