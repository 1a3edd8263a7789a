package repository

import (
	"context"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
)

// PushChannel 与后端之间唯一的推送连接
type PushChannel interface {
	// Connect 幂等：同一 token 已连接时直接返回；换 token 会先断开再重连。
	// 失败不会 panic，连接保持断开状态，错误仅用于记录。
	Connect(ctx context.Context, token string) error
	// Disconnect 断开连接，重复调用安全
	Disconnect()
	IsConnected() bool

	// On 注册某类型的回调，同一类型按注册顺序依次调用
	On(t event.MessageType, h event.Handler) event.HandlerID
	Off(t event.MessageType, id event.HandlerID)

	// OnStateChange 连接状态变化回调，返回取消函数
	OnStateChange(fn func(connected bool)) func()
}
