package repository

import (
	"context"

	"github.com/diarist/server/internal/domain/entity"
)

// MessageRepository 消息记录仓储接口
// 定义在领域层，实现在基础设施层
type MessageRepository interface {
	// Insert 插入记录并返回分配的 ID。seq 由调用方给出。
	Insert(ctx context.Context, record *entity.MessageRecord) (string, error)

	// FindByConversation 按 seq 升序返回会话的全部记录
	FindByConversation(ctx context.Context, conversationID string) ([]*entity.MessageRecord, error)

	// FindByID 根据ID查找记录
	FindByID(ctx context.Context, id string) (*entity.MessageRecord, error)

	// MaxSeq 返回当前最大 seq；会话没有记录时 ok 为 false
	MaxSeq(ctx context.Context, conversationID string) (seq int64, ok bool, err error)

	// DeleteByConversation 删除会话的全部记录
	DeleteByConversation(ctx context.Context, conversationID string) error
}

// ConversationRepository 会话仓储接口
type ConversationRepository interface {
	// Upsert 不存在时插入，已存在时不做任何修改
	Upsert(ctx context.Context, conversation *entity.Conversation) error

	// Exists 判断会话是否存在
	Exists(ctx context.Context, id string) (bool, error)

	// FindByID 根据ID查找会话
	FindByID(ctx context.Context, id string) (*entity.Conversation, error)

	// DeleteOwned 删除属于该用户的会话，不属于时不删除
	DeleteOwned(ctx context.Context, id, ownerUserID string) error
}
