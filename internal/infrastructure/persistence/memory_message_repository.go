package persistence

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	domainErrors "github.com/diarist/server/pkg/errors"
)

// MemoryMessageRepository 内存实现的消息仓储（用于开发/测试）。
// 与数据库一样拒绝同一会话内重复的 seq。
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]*entity.MessageRecord
	// 会话ID到消息ID列表的映射
	convMessages map[string][]string
}

// NewMemoryMessageRepository 创建内存消息仓储
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		messages:     make(map[string]*entity.MessageRecord),
		convMessages: make(map[string][]string),
	}
}

var _ repository.MessageRepository = (*MemoryMessageRepository)(nil)

// Insert 插入消息记录
func (r *MemoryMessageRepository) Insert(ctx context.Context, record *entity.MessageRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	convID := record.ConversationID()
	for _, id := range r.convMessages[convID] {
		if r.messages[id].Seq() == record.Seq() {
			return "", domainErrors.NewInternalErrorWithCause("failed to insert message",
				errors.Join(entity.ErrStoreWriteFailure, entity.ErrSequenceConflict))
		}
	}

	if record.ID() == "" {
		record.AssignID(uuid.NewString())
	}
	r.messages[record.ID()] = record
	r.convMessages[convID] = append(r.convMessages[convID], record.ID())

	return record.ID(), nil
}

// FindByConversation 按 seq 升序返回记录
func (r *MemoryMessageRepository) FindByConversation(ctx context.Context, conversationID string) ([]*entity.MessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.convMessages[conversationID]
	records := make([]*entity.MessageRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, r.messages[id])
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq() < records[j].Seq() })
	return records, nil
}

// FindByID 根据ID查找记录
func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*entity.MessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.messages[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("message not found")
	}
	return record, nil
}

// MaxSeq 返回当前最大 seq
func (r *MemoryMessageRepository) MaxSeq(ctx context.Context, conversationID string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.convMessages[conversationID]
	if len(ids) == 0 {
		return 0, false, nil
	}
	maxSeq := r.messages[ids[0]].Seq()
	for _, id := range ids[1:] {
		if s := r.messages[id].Seq(); s > maxSeq {
			maxSeq = s
		}
	}
	return maxSeq, true, nil
}

// DeleteByConversation 删除会话的全部记录
func (r *MemoryMessageRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.convMessages[conversationID] {
		delete(r.messages, id)
	}
	delete(r.convMessages, conversationID)
	return nil
}

// MemoryConversationRepository 内存实现的会话仓储
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
}

// NewMemoryConversationRepository 创建内存会话仓储
func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{conversations: make(map[string]*entity.Conversation)}
}

var _ repository.ConversationRepository = (*MemoryConversationRepository)(nil)

// Upsert 不存在时插入
func (r *MemoryConversationRepository) Upsert(ctx context.Context, conv *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[conv.ID()]; !ok {
		r.conversations[conv.ID()] = conv
	}
	return nil
}

// Exists 判断会话是否存在
func (r *MemoryConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conversations[id]
	return ok, nil
}

// FindByID 根据ID查找会话
func (r *MemoryConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("conversation not found")
	}
	return conv, nil
}

// DeleteOwned 删除属于该用户的会话
func (r *MemoryConversationRepository) DeleteOwned(ctx context.Context, id, ownerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.conversations[id]; ok && conv.IsOwnedBy(ownerUserID) {
		delete(r.conversations, id)
	}
	return nil
}

// Count 会话数量
func (r *MemoryConversationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}
