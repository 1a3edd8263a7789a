package event

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// MessageType 后端推送通道的消息类型
type MessageType string

const (
	ExternalDocumentReceived MessageType = "EXTERNAL_DOCUMENT_RECEIVED"
	ExternalDocumentUpdated  MessageType = "EXTERNAL_DOCUMENT_UPDATED"
	InternalDocumentReceived MessageType = "INTERNAL_DOCUMENT_RECEIVED"
	InternalDocumentSent     MessageType = "INTERNAL_DOCUMENT_SENT"
	InternalDocumentUpdated  MessageType = "INTERNAL_DOCUMENT_UPDATED"
	InternalDocumentRead     MessageType = "INTERNAL_DOCUMENT_READ"
)

// 实体类型（决定深链接）
const (
	EntityInternalDocument = "internal_document"
	EntityExternalDocument = "external_document"
)

// KnownTypes 通知中心识别的全部类型
var KnownTypes = []MessageType{
	ExternalDocumentReceived,
	ExternalDocumentUpdated,
	InternalDocumentReceived,
	InternalDocumentSent,
	InternalDocumentUpdated,
	InternalDocumentRead,
}

// InternalDocumentTypes 内部文书相关的四种事件
var InternalDocumentTypes = []MessageType{
	InternalDocumentReceived,
	InternalDocumentSent,
	InternalDocumentUpdated,
	InternalDocumentRead,
}

func (t MessageType) IsInternal() bool {
	return strings.HasPrefix(string(t), "INTERNAL_")
}

func (t MessageType) IsReceived() bool {
	return strings.HasSuffix(string(t), "_RECEIVED")
}

// ID 推送消息 id：后端有时给数字有时给字符串，统一成字符串
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Timestamp 兼容 RFC3339 与不带时区的本地时间格式
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return err
		}
		t.Time = time.UnixMilli(ms)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Message 推送通道的消息体
type Message struct {
	Type       MessageType `json:"type"`
	ID         ID          `json:"id"`
	Content    string      `json:"content"`
	EntityID   int64       `json:"entityId"`
	EntityType string      `json:"entityType"`
	CreatedAt  Timestamp   `json:"createdAt"`
	Read       bool        `json:"read"`
}

// Handler 消息回调
type Handler func(Message)

// HandlerID 注册句柄，用于注销（func 不可比较）
type HandlerID uint64
