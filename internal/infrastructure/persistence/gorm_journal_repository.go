package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/infrastructure/persistence/models"
	domainErrors "github.com/diarist/server/pkg/errors"
)

// GormJournalRepository GORM 实现的日记仓储
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository 创建 GORM 日记仓储
func NewGormJournalRepository(db *gorm.DB) repository.JournalRepository {
	return &GormJournalRepository{db: db}
}

// FindByID 根据ID查找日记
func (r *GormJournalRepository) FindByID(ctx context.Context, id string) (*entity.Journal, error) {
	var model models.JournalModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("journal not found")
		}
		return nil, domainErrors.NewInternalError("failed to find journal: " + err.Error())
	}
	return journalToEntity(&model), nil
}

// FindByOwner 查找用户的全部日记，按创建时间倒序
func (r *GormJournalRepository) FindByOwner(ctx context.Context, ownerUserID string) ([]*entity.Journal, error) {
	var modelList []models.JournalModel
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at desc").
		Find(&modelList).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find journals: " + err.Error())
	}

	journals := make([]*entity.Journal, 0, len(modelList))
	for i := range modelList {
		journals = append(journals, journalToEntity(&modelList[i]))
	}
	return journals, nil
}

// Save 保存日记（创建或更新）
func (r *GormJournalRepository) Save(ctx context.Context, journal *entity.Journal) error {
	if err := r.db.WithContext(ctx).Save(journalToModel(journal)).Error; err != nil {
		return domainErrors.NewInternalError("failed to save journal: " + err.Error())
	}
	return nil
}

// Delete 删除日记
func (r *GormJournalRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.JournalModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete journal: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("journal not found")
	}
	return nil
}

func journalToModel(j *entity.Journal) *models.JournalModel {
	var convID *string
	if id := j.ConversationID(); id != "" {
		convID = &id
	}
	return &models.JournalModel{
		ID:             j.ID(),
		OwnerUserID:    j.OwnerUserID(),
		Title:          j.Title(),
		Content:        j.Content(),
		ThumbnailURL:   j.ThumbnailURL(),
		ConversationID: convID,
		IsDraft:        j.IsDraft(),
		CreatedAt:      j.CreatedAt(),
		UpdatedAt:      j.UpdatedAt(),
	}
}

func journalToEntity(m *models.JournalModel) *entity.Journal {
	var convID string
	if m.ConversationID != nil {
		convID = *m.ConversationID
	}
	return entity.ReconstructJournal(
		m.ID, m.OwnerUserID, m.Title, m.Content, m.ThumbnailURL, convID,
		m.IsDraft, m.CreatedAt, m.UpdatedAt,
	)
}

// GormGitHubLinkRepository GORM 实现的 GitHub 绑定仓储
type GormGitHubLinkRepository struct {
	db *gorm.DB
}

// NewGormGitHubLinkRepository 创建 GORM GitHub 绑定仓储
func NewGormGitHubLinkRepository(db *gorm.DB) repository.GitHubLinkRepository {
	return &GormGitHubLinkRepository{db: db}
}

// FindByUser 查找绑定
func (r *GormGitHubLinkRepository) FindByUser(ctx context.Context, userID string) (*entity.GitHubLink, error) {
	var model models.GitHubTokenModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrGitHubNotLinked
		}
		return nil, domainErrors.NewInternalError("failed to find github link: " + err.Error())
	}
	return entity.ReconstructGitHubLink(model.UserID, model.AccessToken, model.Username, model.UpdatedAt), nil
}

// Save 创建或覆盖绑定
func (r *GormGitHubLinkRepository) Save(ctx context.Context, link *entity.GitHubLink) error {
	model := &models.GitHubTokenModel{
		UserID:      link.UserID(),
		AccessToken: link.AccessToken(),
		Username:    link.Username(),
		UpdatedAt:   link.UpdatedAt(),
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save github link: " + err.Error())
	}
	return nil
}

// Delete 解除绑定
func (r *GormGitHubLinkRepository) Delete(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Delete(&models.GitHubTokenModel{}, "user_id = ?", userID).Error
	if err != nil {
		return domainErrors.NewInternalError("failed to delete github link: " + err.Error())
	}
	return nil
}
