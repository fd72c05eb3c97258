package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders 为 JSON 接口写入固定的安全响应头。
// 预测服务不返回 HTML，因此 CSP 直接禁止加载任何资源。
func SecurityHeaders() gin.HandlerFunc {
	headers := [][2]string{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Cache-Control", "no-store"},
	}
	return func(c *gin.Context) {
		for _, h := range headers {
			c.Header(h[0], h[1])
		}
		c.Next()
	}
}
