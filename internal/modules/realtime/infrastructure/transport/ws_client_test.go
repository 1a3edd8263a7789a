package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushServer struct {
	srv      *httptest.Server
	accepted atomic.Int32
	tokens   chan string
	connCh   chan *websocket.Conn
	mu       sync.Mutex
	conns    []*websocket.Conn
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{tokens: make(chan string, 8), connCh: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.accepted.Add(1)
		ps.tokens <- r.URL.Query().Get("token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conns = append(ps.conns, conn)
		ps.mu.Unlock()
		ps.connCh <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		ps.closeAll()
		ps.srv.Close()
	})
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http") + "/ws"
}

func (ps *pushServer) next(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-ps.connCh:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no server connection")
		return nil
	}
}

func (ps *pushServer) closeAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, c := range ps.conns {
		_ = c.Close()
	}
}

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("backend"))
	require.NoError(t, err)
	return s
}

func TestWsClientReceivesAndDispatches(t *testing.T) {
	ps := newPushServer(t)
	c := NewWsClient(Options{URL: ps.url(), PingPeriod: time.Second})
	defer c.Disconnect()

	got := make(chan event.Message, 1)
	c.On(event.InternalDocumentReceived, func(m event.Message) { got <- m })

	token := testToken(t, time.Now().Add(time.Hour))
	require.NoError(t, c.Connect(context.Background(), token))
	assert.True(t, c.IsConnected())
	assert.Equal(t, token, <-ps.tokens)

	payload := `{"type":"INTERNAL_DOCUMENT_RECEIVED","id":42,"content":"New doc","entityId":7,` +
		`"entityType":"internal_document","createdAt":"2024-01-01T00:00:00Z","read":false}`
	require.NoError(t, ps.next(t).WriteMessage(websocket.TextMessage, []byte(payload)))

	select {
	case m := <-got:
		assert.Equal(t, event.ID("42"), m.ID)
		assert.Equal(t, int64(7), m.EntityID)
		assert.Equal(t, "New doc", m.Content)
		assert.Equal(t, 2024, m.CreatedAt.Year())
	case <-time.After(2 * time.Second):
		t.Fatal("message not dispatched")
	}
}

func TestWsClientConnectIsIdempotent(t *testing.T) {
	ps := newPushServer(t)
	c := NewWsClient(Options{URL: ps.url()})
	defer c.Disconnect()

	token := testToken(t, time.Now().Add(time.Hour))
	require.NoError(t, c.Connect(context.Background(), token))
	require.NoError(t, c.Connect(context.Background(), token))
	assert.Equal(t, int32(1), ps.accepted.Load())

	other := testToken(t, time.Now().Add(2*time.Hour))
	require.NoError(t, c.Connect(context.Background(), other))
	assert.Equal(t, int32(2), ps.accepted.Load())
	assert.True(t, c.IsConnected())
}

func TestWsClientRejectsExpiredToken(t *testing.T) {
	ps := newPushServer(t)
	c := NewWsClient(Options{URL: ps.url()})

	err := c.Connect(context.Background(), testToken(t, time.Now().Add(-time.Minute)))
	assert.Error(t, err)
	assert.False(t, c.IsConnected())
	assert.Equal(t, int32(0), ps.accepted.Load())
}

func TestWsClientUnreachable(t *testing.T) {
	c := NewWsClient(Options{URL: "ws://127.0.0.1:1/ws", HandshakeTimeout: time.Second})
	assert.NotPanics(t, func() {
		err := c.Connect(context.Background(), testToken(t, time.Now().Add(time.Hour)))
		assert.Error(t, err)
	})
	assert.False(t, c.IsConnected())
	c.Disconnect()
}

func TestWsClientDropAndManualReconnect(t *testing.T) {
	ps := newPushServer(t)
	c := NewWsClient(Options{URL: ps.url()})
	defer c.Disconnect()

	states := make(chan bool, 4)
	c.OnStateChange(func(connected bool) { states <- connected })

	token := testToken(t, time.Now().Add(time.Hour))
	require.NoError(t, c.Connect(context.Background(), token))
	assert.True(t, <-states)

	require.NoError(t, ps.next(t).Close())
	select {
	case s := <-states:
		assert.False(t, s)
	case <-time.After(2 * time.Second):
		t.Fatal("drop not observed")
	}
	assert.False(t, c.IsConnected())

	require.NoError(t, c.Connect(context.Background(), token))
	assert.True(t, c.IsConnected())
	assert.Equal(t, int32(2), ps.accepted.Load())
}

func TestWsClientDisconnectTwice(t *testing.T) {
	ps := newPushServer(t)
	c := NewWsClient(Options{URL: ps.url()})
	require.NoError(t, c.Connect(context.Background(), testToken(t, time.Now().Add(time.Hour))))

	c.Disconnect()
	c.Disconnect()
	assert.False(t, c.IsConnected())
}

func TestWsClientDisconnectDuringSlowHandshake(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		entered <- struct{}{}
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := NewWsClient(Options{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), HandshakeTimeout: 5 * time.Second})
	token := testToken(t, time.Now().Add(time.Hour))
	connectErr := make(chan error, 1)
	go func() {
		connectErr <- c.Connect(context.Background(), token)
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never reached the server")
	}

	start := time.Now()
	c.Disconnect()
	assert.Less(t, time.Since(start), time.Second)

	select {
	case err := <-connectErr:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("connect not aborted by disconnect")
	}
	assert.False(t, c.IsConnected())
}
