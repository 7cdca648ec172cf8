package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/diarist/server/internal/application/usecase"
	domainErrors "github.com/diarist/server/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const nonceCookie = "github_oauth_nonce"

// GitHubHandler GitHub 绑定与提交导入
type GitHubHandler struct {
	github     *usecase.GitHubUseCase
	appBaseURL string
	logger     *zap.Logger
}

// NewGitHubHandler 创建处理器。appBaseURL 是回调完成后跳回的前端地址。
func NewGitHubHandler(github *usecase.GitHubUseCase, appBaseURL string, logger *zap.Logger) *GitHubHandler {
	return &GitHubHandler{github: github, appBaseURL: strings.TrimSuffix(appBaseURL, "/"), logger: logger.With(zap.String("handler", "github"))}
}

// Auth GET /api/v1/github/auth，跳转到 GitHub 授权页
func (h *GitHubHandler) Auth(c *gin.Context) {
	authURL, nonce, err := h.github.BeginAuth(identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(nonceCookie, nonce, 600, "/", "", secure, true)
	c.Redirect(http.StatusFound, authURL)
}

// Callback GET /api/v1/github/callback
func (h *GitHubHandler) Callback(c *gin.Context) {
	if ghErr := c.Query("error"); ghErr != "" {
		h.redirect(c, "github_error", ghErr)
		return
	}

	nonce, _ := c.Cookie(nonceCookie)
	c.SetCookie(nonceCookie, "", -1, "/", "", false, true)

	_, err := h.github.CompleteAuth(c.Request.Context(), c.Query("state"), nonce, c.Query("code"))
	if err != nil {
		reason := "server_error"
		var appErr *domainErrors.AppError
		if errors.As(err, &appErr) && appErr.Code != domainErrors.CodeInternal {
			reason = appErr.Message
		}
		h.redirect(c, "github_error", reason)
		return
	}
	h.redirect(c, "github_connected", "true")
}

func (h *GitHubHandler) redirect(c *gin.Context, key, value string) {
	c.Redirect(http.StatusFound, h.appBaseURL+"/write?"+url.Values{key: {value}}.Encode())
}

// Status GET /api/v1/github/status
func (h *GitHubHandler) Status(c *gin.Context) {
	status, err := h.github.Status(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Disconnect POST /api/v1/github/disconnect
func (h *GitHubHandler) Disconnect(c *gin.Context) {
	if err := h.github.Disconnect(c.Request.Context(), identity(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Commits GET /api/v1/github/commits?date=YYYY-MM-DD
func (h *GitHubHandler) Commits(c *gin.Context) {
	commits, err := h.github.Commits(c.Request.Context(), identity(c), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, commits)
}
