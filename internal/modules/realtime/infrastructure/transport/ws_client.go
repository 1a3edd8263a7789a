package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/observer"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// ErrConnectSuperseded 拨号期间又发生了 Connect 或 Disconnect，本次连接被丢弃
var ErrConnectSuperseded = errors.New("push channel: connect superseded")

// Options 推送通道参数
type Options struct {
	URL              string
	PingPeriod       time.Duration
	HandshakeTimeout time.Duration
}

// WsClient 基于 gorilla/websocket 的推送通道客户端。
// 断线后不自动重连，由调用方重新 Connect；断线期间的消息丢失，后端不会补发。
type WsClient struct {
	*Dispatcher

	opts   Options
	dialer *websocket.Dialer

	mu    sync.Mutex
	conn  *websocket.Conn
	token string
	done  chan struct{}

	// gen 每次 Connect/Disconnect 加一；拨号不持锁，回来时据此判断是否已过期
	gen        uint64
	dialCancel context.CancelFunc

	connected atomic.Bool
	stateSubs observer.Topic[bool]
}

var _ repository.PushChannel = (*WsClient)(nil)

func NewWsClient(opts Options) *WsClient {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 30 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &WsClient{
		Dispatcher: NewDispatcher(),
		opts:       opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
}

func (c *WsClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *WsClient) OnStateChange(fn func(connected bool)) func() {
	return c.stateSubs.Subscribe(fn)
}

func (c *WsClient) Connect(ctx context.Context, token string) error {
	changed, err := c.connect(ctx, token)
	if changed {
		c.stateSubs.Publish(c.IsConnected())
	}
	if err != nil {
		zlog.Warn("push channel connect failed", zap.Error(err))
	}
	return err
}

func (c *WsClient) connect(ctx context.Context, token string) (bool, error) {
	c.mu.Lock()
	if c.conn != nil && c.token == token {
		c.mu.Unlock()
		return false, nil
	}
	changed := c.resetLocked()
	gen := c.gen
	dialCtx, cancel := context.WithCancel(ctx)
	c.dialCancel = cancel
	c.mu.Unlock()
	defer cancel()

	if token == "" {
		return changed, errors.New("push channel: empty token")
	}
	if _, err := myjwt.Inspect(token, time.Now()); err != nil {
		return changed, errors.Wrap(err, "push channel: reject token")
	}

	target, err := c.endpoint(token)
	if err != nil {
		return changed, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(dialCtx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return changed, errors.Wrap(err, "push channel: dial")
	}

	conn.SetReadLimit(maxMessageSize)
	pongWait := c.opts.PingPeriod * 2
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return changed, ErrConnectSuperseded
	}
	done := make(chan struct{})
	c.conn = conn
	c.token = token
	c.done = done
	c.dialCancel = nil
	c.connected.Store(true)
	c.mu.Unlock()

	go c.readLoop(conn, done)
	go c.pingLoop(conn, done)

	zlog.Info("push channel connected", zap.String("url", c.opts.URL))
	return true, nil
}

// resetLocked 取消进行中的拨号并关闭当前连接；返回是否关闭了已建立的连接
func (c *WsClient) resetLocked() bool {
	c.gen++
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.conn == nil {
		return false
	}
	c.closeLocked()
	return true
}

func (c *WsClient) endpoint(token string) (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", errors.Wrap(err, "push channel: parse url")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	// 浏览器端 WebSocket 无法带自定义 header，后端同时认 query 参数
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *WsClient) Disconnect() {
	c.mu.Lock()
	closed := c.resetLocked()
	c.mu.Unlock()
	if !closed {
		return
	}

	zlog.Info("push channel disconnected")
	c.stateSubs.Publish(false)
}

func (c *WsClient) closeLocked() {
	close(c.done)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	_ = c.conn.Close()
	c.conn = nil
	c.token = ""
	c.done = nil
	c.connected.Store(false)
}

// dropped 读循环异常退出；只处理仍是当前连接的情况
func (c *WsClient) dropped(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	close(c.done)
	_ = conn.Close()
	c.conn = nil
	c.token = ""
	c.done = nil
	c.connected.Store(false)
	c.mu.Unlock()

	zlog.Warn("push channel dropped", zap.Error(cause))
	c.stateSubs.Publish(false)
}

func (c *WsClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				c.dropped(conn, err)
			}
			return
		}

		var msg event.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			zlog.Warn("push channel: bad message", zap.Error(err), zap.ByteString("raw", data))
			continue
		}
		c.Dispatch(msg)
	}
}

func (c *WsClient) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				zlog.Debug("push channel ping failed", zap.Error(err))
				return
			}
		}
	}
}
