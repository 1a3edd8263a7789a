package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/infrastructure/api"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/back"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReadStatusHandler struct {
	svc service.ReadStatusService
}

func NewReadStatusHandler(svc service.ReadStatusService) *ReadStatusHandler {
	return &ReadStatusHandler{svc: svc}
}

// Register 挂载到 /read-status
func (h *ReadStatusHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/read-status")
	g.DELETE("", h.ClearAll)
	g.POST("/:type/batch", h.LoadBatch)
	g.GET("/:type/unread-count", h.GetUnreadCount)
	g.POST("/:type/unread-count/refresh", h.RefreshUnreadCount)
	g.GET("/:type/unread-ids", h.UnreadIDs)
	g.GET("/:type/:id", h.GetStatus)
	g.POST("/:type/:id/read", h.MarkAsRead)
	g.POST("/:type/:id/unread", h.MarkAsUnread)
	g.POST("/:type/:id/toggle", h.Toggle)
	g.GET("/:type/:id/readers", h.Readers)
	g.GET("/:type/:id/statistics", h.Statistics)
}

type statusRespond struct {
	DocumentID   int64               `json:"documentId"`
	DocumentType entity.DocumentType `json:"documentType"`
	// IsRead 从未加载过时为 null
	IsRead *bool `json:"isRead"`
}

type batchRequest struct {
	DocumentIDs []int64 `json:"documentIds" binding:"required"`
}

type unreadCountRespond struct {
	DocumentType entity.DocumentType `json:"documentType"`
	Count        int                 `json:"count"`
}

func (h *ReadStatusHandler) GetStatus(c *gin.Context) {
	t, id, ok := docParams(c)
	if !ok {
		return
	}
	back.Success(c, h.status(id, t))
}

func (h *ReadStatusHandler) LoadBatch(c *gin.Context) {
	t, ok := typeParam(c)
	if !ok {
		return
	}
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind batch request failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if err := h.svc.LoadBatchReadStatus(c.Request.Context(), req.DocumentIDs, t); err != nil {
		back.Result(c, nil, backendError(err))
		return
	}
	out := make([]statusRespond, 0, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		out = append(out, h.status(id, t))
	}
	back.Success(c, out)
}

func (h *ReadStatusHandler) MarkAsRead(c *gin.Context) {
	t, id, ok := docParams(c)
	if !ok {
		return
	}
	if err := h.svc.MarkAsRead(c.Request.Context(), id, t); err != nil {
		back.Result(c, nil, backendError(err))
		return
	}
	back.Success(c, h.status(id, t))
}

func (h *ReadStatusHandler) MarkAsUnread(c *gin.Context) {
	t, id, ok := docParams(c)
	if !ok {
		return
	}
	if err := h.svc.MarkAsUnread(c.Request.Context(), id, t); err != nil {
		back.Result(c, nil, backendError(err))
		return
	}
	back.Success(c, h.status(id, t))
}

func (h *ReadStatusHandler) Toggle(c *gin.Context) {
	t, id, ok := docParams(c)
	if !ok {
		return
	}
	if _, err := h.svc.ToggleReadStatus(c.Request.Context(), id, t); err != nil {
		back.Result(c, nil, backendError(err))
		return
	}
	back.Success(c, h.status(id, t))
}

func (h *ReadStatusHandler) GetUnreadCount(c *gin.Context) {
	t, ok := typeParam(c)
	if !ok {
		return
	}
	back.Success(c, unreadCountRespond{DocumentType: t, Count: h.svc.GetUnreadCount(t)})
}

func (h *ReadStatusHandler) RefreshUnreadCount(c *gin.Context) {
	t, ok := typeParam(c)
	if !ok {
		return
	}
	n, err := h.svc.LoadUnreadCount(c.Request.Context(), t)
	if err != nil {
		back.Result(c, nil, backendError(err))
		return
	}
	back.Success(c, unreadCountRespond{DocumentType: t, Count: n})
}

func (h *ReadStatusHandler) UnreadIDs(c *gin.Context) {
	t, ok := typeParam(c)
	if !ok {
		return
	}
	ids, err := h.svc.UnreadDocumentIDs(c.Request.Context(), t)
	back.Result(c, ids, backendError(err))
}

func (h *ReadStatusHandler) Readers(c *gin.Context) {
	t, id, ok := docParams(c)
	if !ok {
		return
	}
	readers, err := h.svc.DocumentReaders(c.Request.Context(), id, t)
	back.Result(c, readers, backendError(err))
}

func (h *ReadStatusHandler) Statistics(c *gin.Context) {
	t, id, ok := docParams(c)
	if !ok {
		return
	}
	st, err := h.svc.ReadStatistics(c.Request.Context(), id, t)
	back.Result(c, st, backendError(err))
}

func (h *ReadStatusHandler) ClearAll(c *gin.Context) {
	h.svc.ClearAllReadStatus()
	back.Success(c, nil)
}

func (h *ReadStatusHandler) status(id int64, t entity.DocumentType) statusRespond {
	r := statusRespond{DocumentID: id, DocumentType: t}
	if v, known := h.svc.GetReadStatus(id, t); known {
		r.IsRead = &v
	}
	return r
}

func typeParam(c *gin.Context) (entity.DocumentType, bool) {
	t, ok := entity.ParseDocumentType(c.Param("type"))
	if !ok {
		back.Error(c, xerr.BadRequest, "Loại văn bản không hợp lệ")
		return "", false
	}
	return t, true
}

func docParams(c *gin.Context) (entity.DocumentType, int64, bool) {
	t, ok := typeParam(c)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return "", 0, false
	}
	return t, id, true
}

// backendError 后端错误统一映射成业务码，细节只进日志
func backendError(err error) error {
	if err == nil {
		return nil
	}
	zlog.Warn("document backend call failed", zap.Error(err))
	var se *api.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized:
			return xerr.ErrUnauthorized
		case http.StatusNotFound:
			return xerr.ErrNotFound
		}
	}
	if errors.Is(err, context.Canceled) {
		return xerr.New(xerr.BadRequest, "Yêu cầu đã bị hủy")
	}
	return xerr.ErrBackend
}
