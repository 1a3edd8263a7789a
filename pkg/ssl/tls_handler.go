package ssl

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// TlsHandler 安全响应头；只有启用 TLS 时才做 https 跳转
func TlsHandler(host string, port int, tls bool) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:          tls,
		SSLHost:              host + ":" + strconv.Itoa(port),
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		STSSeconds:           stsSeconds(tls),
		STSIncludeSubdomains: tls,
	})
	return func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)

		// 出错时 Process 已经写好了响应（重定向），这里只中止处理链
		if err != nil {
			c.Abort()
			return
		}

		c.Next()
	}
}

func stsSeconds(tls bool) int64 {
	if tls {
		return 31536000
	}
	return 0
}
