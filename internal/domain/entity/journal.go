package entity

import (
	"time"
)

// Journal 日记聚合根
type Journal struct {
	id             string
	ownerUserID    string
	title          string
	content        string // 编辑器 HTML
	thumbnailURL   string
	conversationID string // 为空表示没有关联对话
	isDraft        bool
	createdAt      time.Time
	updatedAt      time.Time
}

// NewJournal 创建新日记（工厂方法）
func NewJournal(id, ownerUserID, title, content string) (*Journal, error) {
	if id == "" {
		return nil, ErrInvalidJournalID
	}
	if ownerUserID == "" {
		return nil, ErrInvalidUserID
	}

	now := time.Now()
	return &Journal{
		id:          id,
		ownerUserID: ownerUserID,
		title:       title,
		content:     content,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructJournal 重建日记（用于从持久化层恢复）
func ReconstructJournal(
	id, ownerUserID, title, content, thumbnailURL, conversationID string,
	isDraft bool,
	createdAt, updatedAt time.Time,
) *Journal {
	return &Journal{
		id:             id,
		ownerUserID:    ownerUserID,
		title:          title,
		content:        content,
		thumbnailURL:   thumbnailURL,
		conversationID: conversationID,
		isDraft:        isDraft,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (j *Journal) ID() string             { return j.id }
func (j *Journal) OwnerUserID() string    { return j.ownerUserID }
func (j *Journal) Title() string          { return j.title }
func (j *Journal) Content() string        { return j.content }
func (j *Journal) ThumbnailURL() string   { return j.thumbnailURL }
func (j *Journal) ConversationID() string { return j.conversationID }
func (j *Journal) IsDraft() bool          { return j.isDraft }
func (j *Journal) CreatedAt() time.Time   { return j.createdAt }
func (j *Journal) UpdatedAt() time.Time   { return j.updatedAt }

// IsOwnedBy 判断日记是否属于该用户
func (j *Journal) IsOwnedBy(userID string) bool {
	return userID != "" && j.ownerUserID == userID
}

// Update 修改标题和正文
func (j *Journal) Update(title, content string) {
	j.title = title
	j.content = content
	j.touch()
}

// SetThumbnail 设置缩略图
func (j *Journal) SetThumbnail(url string) {
	j.thumbnailURL = url
	j.touch()
}

// AttachConversation 关联对话
func (j *Journal) AttachConversation(conversationID string) {
	j.conversationID = conversationID
	j.touch()
}

// MarkDraft 标记为草稿
func (j *Journal) MarkDraft(draft bool) {
	j.isDraft = draft
	j.touch()
}

// ApplyEditProposal 接受编辑建议：替换正文，newTitle 非空时替换标题
func (j *Journal) ApplyEditProposal(content, newTitle string) {
	j.content = content
	if newTitle != "" {
		j.title = newTitle
	}
	j.touch()
}

func (j *Journal) touch() {
	j.updatedAt = time.Now()
}
