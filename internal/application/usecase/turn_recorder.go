package usecase

import (
	"context"
	"errors"

	"github.com/diarist/server/internal/domain/conversation"
	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/service"
	"github.com/diarist/server/internal/domain/valueobject"
	"go.uber.org/zap"
)

// TurnRecorder 把对话写入消息存储。写入失败只记录日志和指标，不中断轮次。
type TurnRecorder struct {
	messages repository.MessageRepository
	hooks    service.TurnHook
	logger   *zap.Logger
}

// NewTurnRecorder 创建记录器
func NewTurnRecorder(messages repository.MessageRepository, hooks service.TurnHook, logger *zap.Logger) *TurnRecorder {
	if hooks == nil {
		hooks = service.NoOpHook{}
	}
	return &TurnRecorder{messages: messages, hooks: hooks, logger: logger.With(zap.String("component", "turn_recorder"))}
}

// RecordUserMessage 在模型轮次开始前写入触发它的用户消息
func (r *TurnRecorder) RecordUserMessage(ctx context.Context, s *conversation.Session, text string) (*entity.MessageRecord, error) {
	rec, err := entity.NewMessageRecord(s.ConversationID(), valueobject.RoleUser, s.Allocate(), valueobject.TextContent{Text: text})
	if err != nil {
		return nil, err
	}
	if err := r.insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordTurn 拆分轮次并逐条写入。返回实际写入的记录；
// 拆分时跳过的工具结果和写入失败一并通过 errors.Join 返回。
func (r *TurnRecorder) RecordTurn(ctx context.Context, s *conversation.Session, turn conversation.ModelTurn) ([]*entity.MessageRecord, error) {
	records, decomposeErr := conversation.Decompose(s, turn)
	if decomposeErr != nil && records == nil {
		return nil, decomposeErr
	}
	if decomposeErr != nil {
		r.logger.Warn("Skipped invalid tool results",
			zap.String("conversation_id", s.ConversationID()),
			zap.Error(decomposeErr),
		)
	}

	errs := []error{decomposeErr}
	persisted := make([]*entity.MessageRecord, 0, len(records))
	for _, rec := range records {
		if err := r.insert(ctx, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		persisted = append(persisted, rec)
	}
	return persisted, errors.Join(errs...)
}

func (r *TurnRecorder) insert(ctx context.Context, rec *entity.MessageRecord) error {
	if _, err := r.messages.Insert(ctx, rec); err != nil {
		r.logger.Error("Failed to persist message record",
			zap.String("conversation_id", rec.ConversationID()),
			zap.Int64("seq", rec.Seq()),
			zap.String("type", string(rec.Type())),
			zap.Bool("seq_conflict", errors.Is(err, entity.ErrSequenceConflict)),
			zap.Error(err),
		)
		r.hooks.OnStoreWriteFailure(ctx, rec.Type(), err)
		return err
	}
	r.hooks.OnRecordPersisted(ctx, rec.Type())
	return nil
}
