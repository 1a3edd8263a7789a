package handler

import (
	"net/http"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/ws"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Source 一个可订阅的状态源（通知列表 / 已读缓存）
type Source struct {
	Name      string
	Subscribe func(fn func()) (unsubscribe func())
}

type changedFrame struct {
	Event  string `json:"event"`
	Source string `json:"source"`
}

// WsHandler 本地界面的推送通道：状态变化时只发一个“变了”的提示，界面自己回来拉
type WsHandler struct {
	hub    *ws.Hub
	jwtKey string
}

// NewWsHandler jwtKey 为空时不校验
func NewWsHandler(hub *ws.Hub, jwtKey string, sources ...Source) *WsHandler {
	h := &WsHandler{hub: hub, jwtKey: jwtKey}
	for _, src := range sources {
		name := src.Name
		src.Subscribe(func() {
			if err := hub.BroadcastJSON(changedFrame{Event: "changed", Source: name}); err != nil {
				zlog.Error("broadcast change failed", zap.Error(err))
			}
		})
	}
	return h
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *WsHandler) Connect(c *gin.Context) {
	// 浏览器原生 WebSocket 无法带自定义 Header，token 放在 query 里
	if h.jwtKey != "" {
		if _, err := myjwt.ParseToken(c.Query("token"), h.jwtKey); err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error("ws upgrade failed", zap.Error(err))
		return
	}

	consumerID := c.Query("client_id")
	if consumerID == "" {
		consumerID = util.GenerateShortUUID()
	}
	client := ws.NewClient(consumerID, conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go client.WritePump()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// 界面不发业务消息，读循环只用于发现断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			zlog.Debug("ws consumer left", zap.String("consumer", consumerID), zap.Error(err))
			return
		}
	}
}
