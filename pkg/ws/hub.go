// Package ws 本地消费方的 WebSocket 连接管理：每个连接一个 Client，按 consumer id 分组。
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	if c == nil || c.consumerID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.consumerID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.consumerID] = set
	}
	set[c] = struct{}{}
}

// Unregister 同时关闭连接，可重复调用
func (h *Hub) Unregister(c *Client) {
	if c == nil || c.consumerID == "" {
		return
	}
	h.mu.Lock()
	set := h.clients[c.consumerID]
	if set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.consumerID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Send 发给某个 consumer 的所有连接；发送缓冲满的慢连接直接踢掉
func (h *Hub) Send(consumerID string, payload []byte) bool {
	if consumerID == "" || len(payload) == 0 {
		return false
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[consumerID]))
	for c := range h.clients[consumerID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, payload) > 0
}

// Broadcast 发给所有连接，返回成功投递的连接数
func (h *Hub) Broadcast(payload []byte) int {
	if len(payload) == 0 {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, set := range h.clients {
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	return h.deliver(targets, payload)
}

func (h *Hub) deliver(targets []*Client, payload []byte) int {
	n := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			n++
			continue
		}
		zlog.Warn("ws consumer too slow, dropping", zap.String("consumer", c.consumerID))
		h.Unregister(c)
	}
	return n
}

func (h *Hub) SendJSON(consumerID string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Send(consumerID, b)
	return nil
}

func (h *Hub) BroadcastJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(b)
	return nil
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

type Client struct {
	consumerID string
	conn       *websocket.Conn
	send       chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(consumerID string, conn *websocket.Conn) *Client {
	return &Client{
		consumerID: consumerID,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
	}
}

func (c *Client) ConsumerID() string {
	return c.consumerID
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// WritePump 独占写端，send 关闭后退出
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			zlog.Debug("ws write failed", zap.String("consumer", c.consumerID), zap.Error(err))
			return
		}
	}
}
