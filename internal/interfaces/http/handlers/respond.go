package handlers

import (
	"errors"
	"net/http"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/service"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/infrastructure/auth"
	domainErrors "github.com/diarist/server/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// identity 当前请求的调用者（由认证中间件写入）
func identity(c *gin.Context) valueobject.Identity {
	return auth.IdentityFrom(c.Request.Context())
}

// StatusFor 错误到 HTTP 状态码
func StatusFor(err error) int {
	var llmErr *service.LLMError
	switch {
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &llmErr):
		switch llmErr.Kind {
		case service.ErrKindBadRequest, service.ErrKindContentFilter:
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	default:
		return domainErrors.HTTPStatus(err)
	}
}

// respondError 写 {"error": "..."}。5xx 不暴露内部细节。
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		if appErr == nil {
			msg = http.StatusText(status)
		}
	}
	c.JSON(status, gin.H{"error": msg})
}
