package entity

import "time"

// GitHubLink 用户绑定的 GitHub 账号
type GitHubLink struct {
	userID      string
	accessToken string
	username    string
	updatedAt   time.Time
}

// NewGitHubLink 创建绑定
func NewGitHubLink(userID, accessToken, username string) (*GitHubLink, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return &GitHubLink{
		userID:      userID,
		accessToken: accessToken,
		username:    username,
		updatedAt:   time.Now(),
	}, nil
}

// ReconstructGitHubLink 从持久化层恢复
func ReconstructGitHubLink(userID, accessToken, username string, updatedAt time.Time) *GitHubLink {
	return &GitHubLink{
		userID:      userID,
		accessToken: accessToken,
		username:    username,
		updatedAt:   updatedAt,
	}
}

func (g *GitHubLink) UserID() string       { return g.userID }
func (g *GitHubLink) AccessToken() string  { return g.accessToken }
func (g *GitHubLink) Username() string     { return g.username }
func (g *GitHubLink) UpdatedAt() time.Time { return g.updatedAt }
