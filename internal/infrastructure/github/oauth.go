// Package github GitHub OAuth 绑定与当日提交导入
package github

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// OAuth GitHub OAuth 应用
type OAuth struct {
	config *oauth2.Config
}

// NewOAuth 创建 OAuth 配置。scope 与网页端一致：repo、user:email。
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"repo", "user:email"},
		Endpoint:     githuboauth.Endpoint,
	}}
}

// Configured 是否配置了 client id
func (o *OAuth) Configured() bool {
	return o.config.ClientID != ""
}

// AuthURL 授权跳转地址
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange 用授权码换 access token
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange github code: %w", err)
	}
	return tok.AccessToken, nil
}
