package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// From 从任意 error 中取出 CodeError，取不到时归为系统错误
func From(err error) *CodeError {
	if err == nil {
		return nil
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrServerError
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	BadGateway          = 502
	ServiceUnavailable  = 503
)

// 常用预定义错误
var (
	ErrSuccess      = New(OK, "Success")
	ErrServerError  = New(InternalServerError, "Lỗi hệ thống, vui lòng liên hệ quản trị viên")
	ErrParam        = New(BadRequest, "Tham số không hợp lệ")
	ErrUnauthorized = New(Unauthorized, "Phiên đăng nhập không hợp lệ")
	ErrNotFound     = New(NotFound, "Không tìm thấy dữ liệu")
	ErrBackend      = New(BadGateway, "Máy chủ văn bản không phản hồi hợp lệ")
	ErrNotConnected = New(ServiceUnavailable, "Chưa kết nối kênh thông báo")
)
