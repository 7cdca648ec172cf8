package entity

import (
	"time"
	"unicode/utf8"
)

// TitleHintMaxRunes 会话标题取首条用户消息的前 50 个字符
const TitleHintMaxRunes = 50

// Conversation 会话，属于唯一用户，是 MessageRecord 的父记录
type Conversation struct {
	id          string
	ownerUserID string
	title       string
	createdAt   time.Time
}

// NewConversation 创建新会话（工厂方法），titleHint 会被截断
func NewConversation(id, ownerUserID, titleHint string) (*Conversation, error) {
	if id == "" {
		return nil, ErrInvalidConversationID
	}
	if ownerUserID == "" {
		return nil, ErrInvalidUserID
	}

	return &Conversation{
		id:          id,
		ownerUserID: ownerUserID,
		title:       TruncateTitle(titleHint),
		createdAt:   time.Now(),
	}, nil
}

// ReconstructConversation 重建会话（用于从持久化层恢复）
func ReconstructConversation(id, ownerUserID, title string, createdAt time.Time) *Conversation {
	return &Conversation{
		id:          id,
		ownerUserID: ownerUserID,
		title:       title,
		createdAt:   createdAt,
	}
}

func (c *Conversation) ID() string           { return c.id }
func (c *Conversation) OwnerUserID() string  { return c.ownerUserID }
func (c *Conversation) Title() string        { return c.title }
func (c *Conversation) CreatedAt() time.Time { return c.createdAt }

// IsOwnedBy 判断会话是否属于该用户
func (c *Conversation) IsOwnedBy(userID string) bool {
	return userID != "" && c.ownerUserID == userID
}

// TruncateTitle 按字符（非字节）截断
func TruncateTitle(hint string) string {
	if utf8.RuneCountInString(hint) <= TitleHintMaxRunes {
		return hint
	}
	return string([]rune(hint)[:TitleHintMaxRunes])
}
