package entity

import (
	"strings"
	"time"
)

// DocumentType 文书流转类别
type DocumentType string

const (
	OutgoingExternal DocumentType = "OUTGOING_EXTERNAL"
	IncomingExternal DocumentType = "INCOMING_EXTERNAL"
	OutgoingInternal DocumentType = "OUTGOING_INTERNAL"
	IncomingInternal DocumentType = "INCOMING_INTERNAL"
)

var DocumentTypes = []DocumentType{
	OutgoingExternal,
	IncomingExternal,
	OutgoingInternal,
	IncomingInternal,
}

func (t DocumentType) Valid() bool {
	switch t {
	case OutgoingExternal, IncomingExternal, OutgoingInternal, IncomingInternal:
		return true
	}
	return false
}

// ParseDocumentType 大小写、连字符都兼容
func ParseDocumentType(s string) (DocumentType, bool) {
	t := DocumentType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return t, t.Valid()
}

// Key 缓存键
type Key struct {
	DocumentID   int64
	DocumentType DocumentType
}

// Reader 文书阅读人
type Reader struct {
	UserID     int64      `json:"userId"`
	FullName   string     `json:"fullName"`
	Department string     `json:"departmentName,omitempty"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

// Statistics 文书阅读统计
type Statistics struct {
	TotalReaders   int     `json:"totalReaders"`
	ReadCount      int     `json:"readCount"`
	UnreadCount    int     `json:"unreadCount"`
	ReadPercentage float64 `json:"readPercentage"`
}

// Pulse 跨进程已读变更提示：尽力而为，不保证送达
type Pulse struct {
	DocumentID   int64        `json:"documentId"`
	DocumentType DocumentType `json:"documentType"`
	IsRead       bool         `json:"isRead"`
	Timestamp    int64        `json:"timestamp"`
	Origin       string       `json:"origin"`
}
