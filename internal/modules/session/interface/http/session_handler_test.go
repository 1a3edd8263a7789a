package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/session/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	service.SessionService
	loggedOut bool
}

func (s *stubSession) Login(_ context.Context, token string) (service.Session, error) {
	if token != "good" {
		return service.Session{}, myjwt.ErrTokenExpired
	}
	return service.Session{LoggedIn: true, UserID: "7"}, nil
}

func (s *stubSession) Logout(context.Context) error {
	s.loggedOut = true
	return nil
}

func (s *stubSession) Current() service.Session {
	return service.Session{LoggedIn: !s.loggedOut, UserID: "7"}
}

func send(t *testing.T, r http.Handler, method, path, body string) (int, json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Code, env.Data
}

func TestSessionRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubSession{}
	r := gin.New()
	NewSessionHandler(svc).Register(r.Group("/api/v1"))

	code, _ := send(t, r, http.MethodPost, "/api/v1/session/login", `{}`)
	assert.Equal(t, xerr.BadRequest, code)

	code, _ = send(t, r, http.MethodPost, "/api/v1/session/login", `{"token":"stale"}`)
	assert.Equal(t, xerr.Unauthorized, code)

	code, data := send(t, r, http.MethodPost, "/api/v1/session/login", `{"token":"good"}`)
	assert.Equal(t, xerr.OK, code)
	assert.JSONEq(t, `{"loggedIn":true,"userId":"7","connected":false}`, string(data))

	code, _ = send(t, r, http.MethodPost, "/api/v1/session/logout", "")
	assert.Equal(t, xerr.OK, code)
	assert.True(t, svc.loggedOut)

	_, data = send(t, r, http.MethodGet, "/api/v1/session", "")
	assert.JSONEq(t, `{"loggedIn":false,"userId":"7","connected":false}`, string(data))
}
