// Package identity 将访问令牌解析为本地用户
package identity

import (
	"context"
	"errors"
	"sync/atomic"

	"meetup-backend/internal/global/jwt"
)

// ErrInvalidToken 令牌无效或已过期
var ErrInvalidToken = errors.New("invalid token")

// ErrEmailTaken 外部身份的邮箱已绑定到另一个外部身份
var ErrEmailTaken = errors.New("email already bound to another identity")

type Identity struct {
	UserID uint
	Email  string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// LocalVerifier 校验本服务签发的 JWT
type LocalVerifier struct{}

func (LocalVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims, ok := jwt.ParseToken(token)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

type holder struct{ Verifier }

var current atomic.Pointer[holder]

// Get 返回当前使用的校验器，未初始化时使用本地 JWT
func Get() Verifier {
	if h := current.Load(); h != nil {
		return h.Verifier
	}
	return LocalVerifier{}
}

func Set(v Verifier) {
	current.Store(&holder{v})
}
