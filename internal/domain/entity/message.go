package entity

import (
	"time"

	"github.com/diarist/server/internal/domain/valueobject"
)

// MessageRecord 会话中持久化的最小单元。seq 由会话分配，不依赖存储自增。
type MessageRecord struct {
	id             string
	conversationID string
	role           valueobject.Role
	seq            int64
	content        valueobject.Content
	createdAt      time.Time
}

// NewMessageRecord 创建新消息记录（工厂方法）。id 在插入时分配。
func NewMessageRecord(
	conversationID string,
	role valueobject.Role,
	seq int64,
	content valueobject.Content,
) (*MessageRecord, error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}
	if role != valueobject.RoleUser && role != valueobject.RoleAssistant {
		return nil, ErrInvalidRole
	}
	if seq < 0 {
		return nil, ErrInvalidSeq
	}
	if content == nil {
		return nil, ErrEmptyContent
	}

	return &MessageRecord{
		conversationID: conversationID,
		role:           role,
		seq:            seq,
		content:        content,
		createdAt:      time.Now(),
	}, nil
}

// ReconstructMessageRecord 重建消息记录（用于从持久化层恢复）
func ReconstructMessageRecord(
	id string,
	conversationID string,
	role valueobject.Role,
	seq int64,
	content valueobject.Content,
	createdAt time.Time,
) *MessageRecord {
	return &MessageRecord{
		id:             id,
		conversationID: conversationID,
		role:           role,
		seq:            seq,
		content:        content,
		createdAt:      createdAt,
	}
}

func (m *MessageRecord) ID() string                   { return m.id }
func (m *MessageRecord) ConversationID() string       { return m.conversationID }
func (m *MessageRecord) Role() valueobject.Role       { return m.role }
func (m *MessageRecord) Seq() int64                   { return m.seq }
func (m *MessageRecord) Content() valueobject.Content { return m.content }
func (m *MessageRecord) CreatedAt() time.Time         { return m.createdAt }

// Type 返回内容类型
func (m *MessageRecord) Type() valueobject.ContentType {
	return m.content.Type()
}

// AssignID 由存储层在插入时调用
func (m *MessageRecord) AssignID(id string) {
	m.id = id
}
