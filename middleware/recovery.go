package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/kernelsvm/response"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

// Recovery 捕获处理器 panic，记录调用栈并返回统一的 500 响应。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.ErrorContext(c.Request.Context(), "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(HeaderXRequestID),
				"stack", string(debug.Stack()),
			)
			response.Error(c, xerrors.Internal("Internal Server Error", fmt.Errorf("panic: %v", rec)))
			c.Abort()
		}()
		c.Next()
	}
}
