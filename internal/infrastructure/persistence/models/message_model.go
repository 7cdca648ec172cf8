package models

import (
	"time"
)

// MessageModel 数据库消息模型。(conversation_id, seq) 唯一：
// 并发轮次分配出重复 seq 时插入失败，而不是悄悄产生重复。
type MessageModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	ConversationID string `gorm:"size:64;not null;uniqueIndex:idx_messages_conversation_seq,priority:1"`
	Seq            int64  `gorm:"not null;uniqueIndex:idx_messages_conversation_seq,priority:2"`
	Role           string `gorm:"size:16;not null"`
	Type           string `gorm:"size:32;not null"` // text, image, edit-proposal
	Content        string `gorm:"type:text;not null"`
	CreatedAt      time.Time
	Conversation   ConversationModel `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (MessageModel) TableName() string {
	return "messages"
}

// ConversationModel 数据库会话模型
type ConversationModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	OwnerUserID string `gorm:"index;size:64;not null"`
	Title       string `gorm:"size:255"`
	CreatedAt   time.Time
}

// TableName 指定表名
func (ConversationModel) TableName() string {
	return "conversations"
}
