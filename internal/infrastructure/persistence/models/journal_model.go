package models

import (
	"time"
)

// JournalModel 数据库日记模型
type JournalModel struct {
	ID             string  `gorm:"primaryKey;size:64"`
	OwnerUserID    string  `gorm:"index;size:64;not null"`
	Title          string  `gorm:"size:255"`
	Content        string  `gorm:"type:text"`
	ThumbnailURL   string  `gorm:"size:1024"`
	ConversationID *string `gorm:"size:64"`
	IsDraft        bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定表名
func (JournalModel) TableName() string {
	return "journals"
}

// GitHubTokenModel 用户的 GitHub 访问令牌
type GitHubTokenModel struct {
	UserID      string `gorm:"primaryKey;size:64"`
	AccessToken string `gorm:"size:255;not null"`
	Username    string `gorm:"size:128"`
	UpdatedAt   time.Time
}

// TableName 指定表名
func (GitHubTokenModel) TableName() string {
	return "github_tokens"
}
