package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/infrastructure/persistence/models"
	domainErrors "github.com/diarist/server/pkg/errors"
)

// GormConversationRepository GORM 实现的会话仓储
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository 创建 GORM 会话仓储
func NewGormConversationRepository(db *gorm.DB) repository.ConversationRepository {
	return &GormConversationRepository{db: db}
}

// Upsert 不存在时插入（ON CONFLICT DO NOTHING）
func (r *GormConversationRepository) Upsert(ctx context.Context, conv *entity.Conversation) error {
	model := &models.ConversationModel{
		ID:          conv.ID(),
		OwnerUserID: conv.OwnerUserID(),
		Title:       conv.Title(),
		CreatedAt:   conv.CreatedAt(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(model).Error
	if err != nil {
		return domainErrors.NewInternalError("failed to upsert conversation: " + err.Error())
	}
	return nil
}

// Exists 判断会话是否存在
func (r *GormConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, domainErrors.NewInternalError("failed to check conversation: " + err.Error())
	}
	return count > 0, nil
}

// FindByID 根据ID查找会话
func (r *GormConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var model models.ConversationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("conversation not found")
		}
		return nil, domainErrors.NewInternalError("failed to find conversation: " + err.Error())
	}
	return entity.ReconstructConversation(model.ID, model.OwnerUserID, model.Title, model.CreatedAt), nil
}

// DeleteOwned 删除属于该用户的会话
func (r *GormConversationRepository) DeleteOwned(ctx context.Context, id, ownerUserID string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Delete(&models.ConversationModel{}).Error
	if err != nil {
		return domainErrors.NewInternalError("failed to delete conversation: " + err.Error())
	}
	return nil
}
