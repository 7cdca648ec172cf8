package service

import (
	"context"

	"github.com/diarist/server/internal/domain/valueobject"
)

// IdentityResolver 从请求携带的 bearer token 解析用户身份。
// 无法解析时返回 entity.ErrUnauthorized，调用方不得把它当作匿名用户处理。
type IdentityResolver interface {
	Resolve(ctx context.Context, bearerToken string) (valueobject.Identity, error)
}
