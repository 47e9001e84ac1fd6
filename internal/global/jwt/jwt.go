package jwt

import (
	"errors"
	"time"

	"meetup-backend/config"

	"github.com/golang-jwt/jwt"
)

// Payload 令牌中携带的用户身份
type Payload struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

type Claims struct {
	Payload
	jwt.StandardClaims
}

const issuer = "meetup-backend"

func secret() []byte {
	s := config.Get().JWT.AccessSecret
	if s == "" {
		// 仅 debug 模式允许为空，配置校验保证 release 必填
		s = "meetup-debug-secret"
	}
	return []byte(s)
}

// CreateToken 签发 HS256 访问令牌
func CreateToken(payload Payload) (string, error) {
	now := time.Now()
	claims := Claims{
		Payload: payload,
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(config.Get().JWT.AccessExpire) * time.Second).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// ParseToken 校验签名与有效期
func ParseToken(token string) (*Claims, bool) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret(), nil
	})
	if err != nil || !parsed.Valid || claims.UserID == 0 {
		return nil, false
	}
	return claims, true
}
