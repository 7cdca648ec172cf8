// Package auth 校验托管认证服务签发的 bearer token
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diarist/server/internal/domain/entity"
	"github.com/diarist/server/internal/domain/service"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/golang-jwt/jwt/v5"
)

// Claims 认证服务的 access token 载荷
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver HS256 共享密钥校验
type JWTResolver struct {
	secret   []byte
	issuer   string
	audience string
}

var _ service.IdentityResolver = (*JWTResolver)(nil)

// NewJWTResolver 创建解析器
func NewJWTResolver(secret, issuer, audience string) (*JWTResolver, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	return &JWTResolver{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// Resolve 校验 token 并返回身份。任何失败都是 ErrUnauthorized。
func (r *JWTResolver) Resolve(_ context.Context, bearerToken string) (valueobject.Identity, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer "))
	if raw == "" {
		return valueobject.Identity{}, entity.ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return valueobject.Identity{}, fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return valueobject.Identity{}, fmt.Errorf("%w: token has no subject", entity.ErrUnauthorized)
	}
	return valueobject.NewIdentity(claims.Subject, claims.Email), nil
}

// Issue 签发 token，供本地开发和测试使用
func (r *JWTResolver) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if r.audience != "" {
		claims.Audience = jwt.ClaimStrings{r.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
