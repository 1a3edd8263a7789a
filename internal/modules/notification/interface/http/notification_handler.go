package handler

import (
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/back"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc service.FeedService
}

func NewNotificationHandler(svc service.FeedService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// Register 挂载到 /notifications
func (h *NotificationHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.GET("", h.List)
	g.POST("", h.Add)
	g.DELETE("", h.Clear)
	g.GET("/unread-count", h.UnreadCount)
	g.POST("/read-all", h.MarkAllAsRead)
	g.POST("/:id/read", h.MarkAsRead)
}

type listRespond struct {
	Notifications []entity.Record `json:"notifications"`
	UnreadCount   int             `json:"unreadCount"`
}

func (h *NotificationHandler) List(c *gin.Context) {
	list := h.svc.List()
	unread := 0
	for _, r := range list {
		if !r.Read {
			unread++
		}
	}
	back.Success(c, listRespond{Notifications: list, UnreadCount: unread})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	back.Success(c, gin.H{"unreadCount": h.svc.UnreadCount()})
}

func (h *NotificationHandler) Add(c *gin.Context) {
	var in entity.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		zlog.Warn("bind notification failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	back.Success(c, h.svc.Add(in))
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if !h.svc.MarkAsRead(c.Param("id")) {
		back.Error(c, xerr.NotFound, xerr.ErrNotFound.Message)
		return
	}
	back.Success(c, nil)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	h.svc.MarkAllAsRead()
	back.Success(c, nil)
}

func (h *NotificationHandler) Clear(c *gin.Context) {
	h.svc.Clear()
	back.Success(c, nil)
}
