package back

import (
	"net/http"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Result 统一返回入口
func Result(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}
	e := xerr.From(err)
	Error(c, e.Code, e.Message)
}

// Success 成功返回
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    xerr.OK,
		Message: "Success",
		Data:    data,
	})
}

// Error 错误返回；业务码放在 body 里，HTTP 状态码保持 200，与前端约定一致
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// Abort 中间件里使用：写入错误并终止处理链
func Abort(c *gin.Context, err *xerr.CodeError) {
	Error(c, err.Code, err.Message)
	c.Abort()
}
