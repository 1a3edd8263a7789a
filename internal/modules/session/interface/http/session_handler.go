package handler

import (
	"errors"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/session/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/back"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	svc service.SessionService
}

func NewSessionHandler(svc service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Register 挂载到 /session
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/session")
	g.GET("", h.Current)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind login request failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Token)
	if errors.Is(err, myjwt.ErrInvalidToken) || errors.Is(err, myjwt.ErrTokenExpired) {
		back.Error(c, xerr.Unauthorized, xerr.ErrUnauthorized.Message)
		return
	}
	if err != nil {
		zlog.Error("login failed", zap.Error(err))
	}
	back.Result(c, sess, err)
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context()); err != nil {
		zlog.Error("logout failed", zap.Error(err))
		back.Result(c, nil, err)
		return
	}
	back.Success(c, nil)
}

func (h *SessionHandler) Current(c *gin.Context) {
	back.Success(c, h.svc.Current())
}
