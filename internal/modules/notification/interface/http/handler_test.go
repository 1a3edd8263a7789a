package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/infrastructure/persistence"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/observer"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/ws"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func call(t *testing.T, r http.Handler, method, path, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestNotificationRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := service.NewFeedService(context.Background(), persistence.NewFeedRepository(kv.NewMemory(), ""), 0)
	r := gin.New()
	NewNotificationHandler(feed).Register(r.Group("/api/v1"))

	env := call(t, r, http.MethodPost, "/api/v1/notifications", `{"title":"Họp giao ban","message":"8h sáng mai","type":"warning"}`)
	require.Equal(t, xerr.OK, env.Code)
	var added struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &added))

	env = call(t, r, http.MethodPost, "/api/v1/notifications", `{"message":"no title"}`)
	assert.Equal(t, xerr.BadRequest, env.Code)

	env = call(t, r, http.MethodGet, "/api/v1/notifications/unread-count", "")
	assert.JSONEq(t, `{"unreadCount":1}`, string(env.Data))

	env = call(t, r, http.MethodPost, "/api/v1/notifications/"+added.ID+"/read", "")
	assert.Equal(t, xerr.OK, env.Code)
	env = call(t, r, http.MethodPost, "/api/v1/notifications/nope/read", "")
	assert.Equal(t, xerr.NotFound, env.Code)

	env = call(t, r, http.MethodGet, "/api/v1/notifications", "")
	var list listRespond
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Notifications, 1)
	assert.Zero(t, list.UnreadCount)

	call(t, r, http.MethodDelete, "/api/v1/notifications", "")
	assert.Empty(t, feed.List())
}

func TestWsPokesOnChange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var feedChanges observer.Registry
	hub := ws.NewHub()
	h := NewWsHandler(hub, "secret", Source{Name: "feed", Subscribe: feedChanges.Subscribe})

	r := gin.New()
	r.GET("/ws", h.Connect)
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := myjwt.GenerateToken("secret", "qlvb-notify", "u-1", "ui", time.Hour)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	feedChanges.Notify()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame changedFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, changedFrame{Event: "changed", Source: "feed"}, frame)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}
