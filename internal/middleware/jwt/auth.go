package jwt

import (
	"strings"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/back"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// Auth 本地 API 的 bearer 校验；key 为空时放行（仅监听本机时使用）
func Auth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			back.Abort(c, xerr.New(xerr.Unauthorized, "missing or invalid authorization header"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := myjwt.ParseToken(tokenString, key)
		if err != nil {
			back.Abort(c, xerr.New(xerr.Unauthorized, "invalid token"))
			return
		}

		c.Set("uuid", claims.Uuid)
		c.Set("username", claims.Username)
		c.Next()
	}
}
