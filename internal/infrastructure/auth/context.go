package auth

import (
	"context"

	"github.com/diarist/server/internal/domain/valueobject"
)

type identityKey struct{}

// WithIdentity 把已认证身份放进请求上下文
func WithIdentity(ctx context.Context, id valueobject.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom 取出身份，没有时返回匿名身份
func IdentityFrom(ctx context.Context) valueobject.Identity {
	if id, ok := ctx.Value(identityKey{}).(valueobject.Identity); ok {
		return id
	}
	return valueobject.Identity{}
}
