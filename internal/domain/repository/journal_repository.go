package repository

import (
	"context"

	"github.com/diarist/server/internal/domain/entity"
)

// JournalRepository 日记仓储接口
type JournalRepository interface {
	// FindByID 根据ID查找日记
	FindByID(ctx context.Context, id string) (*entity.Journal, error)

	// FindByOwner 查找用户的全部日记，按创建时间倒序
	FindByOwner(ctx context.Context, ownerUserID string) ([]*entity.Journal, error)

	// Save 保存日记（创建或更新）
	Save(ctx context.Context, journal *entity.Journal) error

	// Delete 删除日记
	Delete(ctx context.Context, id string) error
}

// GitHubLinkRepository GitHub 绑定仓储接口
type GitHubLinkRepository interface {
	// FindByUser 查找绑定，未绑定时返回 entity.ErrGitHubNotLinked
	FindByUser(ctx context.Context, userID string) (*entity.GitHubLink, error)

	// Save 创建或覆盖绑定
	Save(ctx context.Context, link *entity.GitHubLink) error

	// Delete 解除绑定
	Delete(ctx context.Context, userID string) error
}
