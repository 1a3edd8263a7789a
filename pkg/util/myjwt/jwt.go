package myjwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptyKey     = errors.New("jwt key is empty")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type CustomClaims struct {
	Uuid     string `json:"uuid,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// UserID 优先取 uuid，后端签发的 token 通常只带 sub
func (c *CustomClaims) UserID() string {
	if c == nil {
		return ""
	}
	if c.Uuid != "" {
		return c.Uuid
	}
	return c.Subject
}

// GenerateToken 签发本地 API 使用的 token
func GenerateToken(key, issuer, uuid, username string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := CustomClaims{
		Uuid:     uuid,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

// ParseToken 校验签名并解析本地 API token
func ParseToken(tokenString, key string) (*CustomClaims, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Inspect 只解析后端 token 的 claims，不校验签名（签名由后端负责）。
// 已过期的 token 直接拒绝，避免拿着必然失败的 token 去建连。
func Inspect(tokenString string, now time.Time) (*CustomClaims, error) {
	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}
