package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/persistence/models"
	domainErrors "github.com/diarist/server/pkg/errors"
)

// GormMessageRepository GORM 实现的消息仓储
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GORM 消息仓储
func NewGormMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &GormMessageRepository{
		db: db,
	}
}

// Insert 插入消息记录。失败时错误链上带有 entity.ErrStoreWriteFailure，
// seq 冲突时还带有 entity.ErrSequenceConflict。
func (r *GormMessageRepository) Insert(ctx context.Context, record *entity.MessageRecord) (string, error) {
	if record.ID() == "" {
		record.AssignID(uuid.NewString())
	}

	model, err := messageToModel(record)
	if err != nil {
		return "", domainErrors.NewInternalErrorWithCause("failed to encode message",
			errors.Join(entity.ErrStoreWriteFailure, err))
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		cause := errors.Join(entity.ErrStoreWriteFailure, err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			cause = errors.Join(entity.ErrStoreWriteFailure, entity.ErrSequenceConflict, err)
		}
		return "", domainErrors.NewInternalErrorWithCause("failed to insert message", cause)
	}

	return record.ID(), nil
}

// FindByConversation 按 seq 升序查找会话的全部记录
func (r *GormMessageRepository) FindByConversation(ctx context.Context, conversationID string) ([]*entity.MessageRecord, error) {
	var modelList []models.MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq asc").
		Find(&modelList).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find messages: " + err.Error())
	}

	records := make([]*entity.MessageRecord, 0, len(modelList))
	for i := range modelList {
		rec, err := messageToEntity(&modelList[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// FindByID 根据ID查找记录
func (r *GormMessageRepository) FindByID(ctx context.Context, id string) (*entity.MessageRecord, error) {
	var model models.MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("message not found")
		}
		return nil, domainErrors.NewInternalError("failed to find message: " + err.Error())
	}
	return messageToEntity(&model)
}

// MaxSeq 返回会话当前最大 seq
func (r *GormMessageRepository) MaxSeq(ctx context.Context, conversationID string) (int64, bool, error) {
	var result struct {
		MaxSeq sql.NullInt64
	}
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Select("MAX(seq) AS max_seq").
		Where("conversation_id = ?", conversationID).
		Scan(&result).Error
	if err != nil {
		return 0, false, domainErrors.NewInternalError("failed to read max seq: " + err.Error())
	}
	if !result.MaxSeq.Valid {
		return 0, false, nil
	}
	return result.MaxSeq.Int64, true, nil
}

// DeleteByConversation 删除会话的全部记录
func (r *GormMessageRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.MessageModel{}).Error
	if err != nil {
		return domainErrors.NewInternalError("failed to delete messages: " + err.Error())
	}
	return nil
}

// 转换方法

func messageToModel(record *entity.MessageRecord) (*models.MessageModel, error) {
	content, err := record.Content().Encode()
	if err != nil {
		return nil, err
	}
	return &models.MessageModel{
		ID:             record.ID(),
		ConversationID: record.ConversationID(),
		Seq:            record.Seq(),
		Role:           string(record.Role()),
		Type:           string(record.Type()),
		Content:        content,
		CreatedAt:      record.CreatedAt(),
	}, nil
}

// messageToEntity 是字符串形式到内容联合类型的唯一转换点
func messageToEntity(model *models.MessageModel) (*entity.MessageRecord, error) {
	role, err := valueobject.ParseRole(model.Role)
	if err != nil {
		return nil, domainErrors.NewInternalError(fmt.Sprintf("message %s: %v", model.ID, err))
	}
	content, err := valueobject.DecodeContent(valueobject.ContentType(model.Type), model.Content)
	if err != nil {
		return nil, domainErrors.NewInternalError(fmt.Sprintf("message %s: %v", model.ID, err))
	}
	return entity.ReconstructMessageRecord(
		model.ID,
		model.ConversationID,
		role,
		model.Seq,
		content,
		model.CreatedAt,
	), nil
}
