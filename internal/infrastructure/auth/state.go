package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateAudience = "github-oauth-state"

// StateClaims OAuth state 载荷。回调请求不带 bearer token，用户ID只能从这里取回。
type StateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// StateSigner 签发和校验短期 OAuth state
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner 创建签名器，ttl 默认 10 分钟
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: []byte("state:" + secret), ttl: ttl, now: time.Now}
}

// Issue 返回 state 和需要写入 cookie 的 nonce
func (s *StateSigner) Issue(userID string) (state, nonce string, err error) {
	nonce = uuid.NewString()
	now := s.now()
	claims := StateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return state, nonce, err
}

// Verify 校验 state 与 cookie 中的 nonce，返回发起授权的用户ID
func (s *StateSigner) Verify(state, nonce string) (string, error) {
	var claims StateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid oauth state: %w", err)
	}
	if nonce == "" || claims.Nonce != nonce {
		return "", fmt.Errorf("invalid oauth state: nonce mismatch")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("invalid oauth state: no subject")
	}
	return claims.Subject, nil
}
