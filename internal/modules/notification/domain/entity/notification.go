package entity

import "time"

// Severity 通知级别
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Record 通知中心的一条记录
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"type"`
	CreatedAt  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
	Link       string    `json:"link,omitempty"`
	DocumentID int64     `json:"documentId,omitempty"`
}

// Input 手动添加通知时的参数
type Input struct {
	Title      string   `json:"title" binding:"required"`
	Message    string   `json:"message"`
	Severity   Severity `json:"type"`
	Link       string   `json:"link,omitempty"`
	DocumentID int64    `json:"documentId,omitempty"`
}
