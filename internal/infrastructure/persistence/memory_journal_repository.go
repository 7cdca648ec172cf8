package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	domainErrors "github.com/diarist/server/pkg/errors"
)

// MemoryJournalRepository 内存实现的日记仓储
type MemoryJournalRepository struct {
	mu       sync.RWMutex
	journals map[string]*entity.Journal
}

// NewMemoryJournalRepository 创建内存日记仓储
func NewMemoryJournalRepository() *MemoryJournalRepository {
	return &MemoryJournalRepository{journals: make(map[string]*entity.Journal)}
}

var _ repository.JournalRepository = (*MemoryJournalRepository)(nil)

// FindByID 根据ID查找日记
func (r *MemoryJournalRepository) FindByID(ctx context.Context, id string) (*entity.Journal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.journals[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("journal not found")
	}
	return j, nil
}

// FindByOwner 按创建时间倒序
func (r *MemoryJournalRepository) FindByOwner(ctx context.Context, ownerUserID string) ([]*entity.Journal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Journal, 0)
	for _, j := range r.journals {
		if j.IsOwnedBy(ownerUserID) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt().After(out[k].CreatedAt()) })
	return out, nil
}

// Save 保存日记
func (r *MemoryJournalRepository) Save(ctx context.Context, journal *entity.Journal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.journals[journal.ID()] = journal
	return nil
}

// Delete 删除日记
func (r *MemoryJournalRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.journals[id]; !ok {
		return domainErrors.NewNotFoundError("journal not found")
	}
	delete(r.journals, id)
	return nil
}

// MemoryGitHubLinkRepository 内存实现的 GitHub 绑定仓储
type MemoryGitHubLinkRepository struct {
	mu    sync.RWMutex
	links map[string]*entity.GitHubLink
}

// NewMemoryGitHubLinkRepository 创建内存 GitHub 绑定仓储
func NewMemoryGitHubLinkRepository() *MemoryGitHubLinkRepository {
	return &MemoryGitHubLinkRepository{links: make(map[string]*entity.GitHubLink)}
}

var _ repository.GitHubLinkRepository = (*MemoryGitHubLinkRepository)(nil)

// FindByUser 查找绑定
func (r *MemoryGitHubLinkRepository) FindByUser(ctx context.Context, userID string) (*entity.GitHubLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[userID]
	if !ok {
		return nil, entity.ErrGitHubNotLinked
	}
	return link, nil
}

// Save 创建或覆盖绑定
func (r *MemoryGitHubLinkRepository) Save(ctx context.Context, link *entity.GitHubLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links[link.UserID()] = link
	return nil
}

// Delete 解除绑定
func (r *MemoryGitHubLinkRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.links, userID)
	return nil
}
