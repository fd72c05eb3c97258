package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/kernelsvm/response"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

// MaxBodyBytes 限制请求体大小，limit 不大于 0 时不限制。
// 声明了 Content-Length 的请求直接拒绝；分块上传的请求在读取越界时由 http.MaxBytesReader 截断，
// 处理器需要把 *http.MaxBytesError 映射为 ErrBodyTooLarge。
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.Error(c, xerrors.ErrBodyTooLarge.Derive("content length %d exceeds %d bytes", c.Request.ContentLength, limit))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
