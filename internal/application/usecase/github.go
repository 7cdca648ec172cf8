package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/repository"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/github"
	domainErrors "github.com/diarist/server/pkg/errors"
	"go.uber.org/zap"
)

// GitHubAuthorizer OAuth 应用
type GitHubAuthorizer interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// CommitSource 读取 GitHub 用户和提交
type CommitSource interface {
	Login(ctx context.Context, token string) (string, error)
	CommitsOn(ctx context.Context, token, login string, day time.Time) (*github.DayCommits, error)
}

// OAuthState 签发和校验 OAuth state
type OAuthState interface {
	Issue(userID string) (state, nonce string, err error)
	Verify(state, nonce string) (string, error)
}

// GitHubStatus 绑定状态
type GitHubStatus struct {
	Connected bool       `json:"connected"`
	Username  string     `json:"username,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// GitHubUseCase GitHub 绑定与当日提交导入
type GitHubUseCase struct {
	links    repository.GitHubLinkRepository
	oauth    GitHubAuthorizer
	commits  CommitSource
	state    OAuthState
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewGitHubUseCase 创建用例。location 决定 "今天" 的含义。
func NewGitHubUseCase(
	links repository.GitHubLinkRepository,
	oauth GitHubAuthorizer,
	commits CommitSource,
	state OAuthState,
	location *time.Location,
	logger *zap.Logger,
) *GitHubUseCase {
	if location == nil {
		location = time.UTC
	}
	return &GitHubUseCase{
		links:    links,
		oauth:    oauth,
		commits:  commits,
		state:    state,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// BeginAuth 返回授权跳转地址和需要写入 cookie 的 nonce
func (uc *GitHubUseCase) BeginAuth(identity valueobject.Identity) (authURL, nonce string, err error) {
	if identity.IsAnonymous() {
		return "", "", domainErrors.NewUnauthorizedError("not authenticated")
	}
	if !uc.oauth.Configured() {
		return "", "", domainErrors.NewServiceUnavailableError("github integration is not configured", nil)
	}
	state, nonce, err := uc.state.Issue(identity.UserID())
	if err != nil {
		return "", "", domainErrors.NewInternalErrorWithCause("issue oauth state", err)
	}
	return uc.oauth.AuthURL(state), nonce, nil
}

// CompleteAuth 处理回调：校验 state、换 token、读取用户名并保存绑定
func (uc *GitHubUseCase) CompleteAuth(ctx context.Context, state, nonce, code string) (*entity.GitHubLink, error) {
	userID, err := uc.state.Verify(state, nonce)
	if err != nil {
		uc.logger.Warn("GitHub callback rejected", zap.Error(err))
		return nil, domainErrors.NewInvalidInputError("invalid_state")
	}
	if code == "" {
		return nil, domainErrors.NewInvalidInputError("missing_code")
	}

	token, err := uc.oauth.Exchange(ctx, code)
	if err != nil {
		uc.logger.Error("GitHub token exchange failed", zap.String("user_id", userID), zap.Error(err))
		return nil, domainErrors.NewServiceUnavailableError("token_exchange_failed", err)
	}
	login, err := uc.commits.Login(ctx, token)
	if err != nil {
		uc.logger.Error("GitHub user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, domainErrors.NewServiceUnavailableError("user_lookup_failed", err)
	}

	link, err := entity.NewGitHubLink(userID, token, login)
	if err != nil {
		return nil, domainErrors.NewInvalidInputError(err.Error())
	}
	if err := uc.links.Save(ctx, link); err != nil {
		return nil, err
	}
	uc.logger.Info("GitHub account linked", zap.String("user_id", userID), zap.String("login", login))
	return link, nil
}

// Status 当前绑定状态
func (uc *GitHubUseCase) Status(ctx context.Context, identity valueobject.Identity) (*GitHubStatus, error) {
	link, err := uc.links.FindByUser(ctx, identity.UserID())
	if errors.Is(err, entity.ErrGitHubNotLinked) {
		return &GitHubStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	updated := link.UpdatedAt()
	return &GitHubStatus{Connected: true, Username: link.Username(), UpdatedAt: &updated}, nil
}

// Disconnect 解除绑定
func (uc *GitHubUseCase) Disconnect(ctx context.Context, identity valueobject.Identity) error {
	return uc.links.Delete(ctx, identity.UserID())
}

// Commits 某一天的提交，date 为空时取配置时区的今天
func (uc *GitHubUseCase) Commits(ctx context.Context, identity valueobject.Identity, date string) (*github.DayCommits, error) {
	day, err := uc.parseDay(date)
	if err != nil {
		return nil, err
	}

	link, err := uc.links.FindByUser(ctx, identity.UserID())
	if errors.Is(err, entity.ErrGitHubNotLinked) {
		return nil, domainErrors.NewNotFoundError("github account not linked")
	}
	if err != nil {
		return nil, err
	}

	login := link.Username()
	if login == "" {
		if login, err = uc.commits.Login(ctx, link.AccessToken()); err != nil {
			return nil, domainErrors.NewServiceUnavailableError("github user lookup failed", err)
		}
	}

	result, err := uc.commits.CommitsOn(ctx, link.AccessToken(), login, day)
	if err != nil {
		return nil, domainErrors.NewServiceUnavailableError("github commits lookup failed", err)
	}
	return result, nil
}

func (uc *GitHubUseCase) parseDay(date string) (time.Time, error) {
	if date == "" {
		now := uc.now().In(uc.location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, uc.location), nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, uc.location)
	if err != nil {
		return time.Time{}, domainErrors.NewInvalidInputError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
	}
	return day, nil
}
