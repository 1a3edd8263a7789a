package http

import (
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"
	jwtMiddleware "github.com/Phambanam99/qlvb-thanh-sub003/internal/middleware/jwt"
	notificationHandler "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/interface/http"
	readStatusHandler "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/interface/http"
	sessionHandler "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/session/interface/http"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/back"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/ssl"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers 本地 API 的全部处理器
type Handlers struct {
	Notification *notificationHandler.NotificationHandler
	Ws           *notificationHandler.WsHandler
	ReadStatus   *readStatusHandler.ReadStatusHandler
	Session      *sessionHandler.SessionHandler
}

// NewEngine 组装路由：/api/v1 下除 /ws 外都走 bearer 校验
func NewEngine(conf *config.Config, h Handlers) *gin.Engine {
	ge := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	ge.Use(cors.New(corsConfig))
	ge.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port, conf.MainConfig.TLS))

	v1 := ge.Group("/api/v1")
	// 浏览器 WebSocket 无法带 Header，token 走 query，在处理器里校验
	v1.GET("/ws", h.Ws.Connect)

	authed := v1.Group("")
	authed.Use(jwtMiddleware.Auth(conf.JwtConfig.Key))
	authed.GET("/auth/ping", func(c *gin.Context) {
		back.Success(c, gin.H{
			"uuid":     c.GetString("uuid"),
			"username": c.GetString("username"),
		})
	})
	h.Notification.Register(authed)
	h.ReadStatus.Register(authed)
	h.Session.Register(authed)
	return ge
}
