package middleware

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	HeaderXRequestID = "X-Request-ID"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
)

func requestIDNode() (*snowflake.Node, error) {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(1)
	})
	return node, nodeErr
}

// RequestID 返回一个用于生成或传递请求 ID 的 Gin 中间件。
// 上游未携带时使用雪花算法生成，并写回响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			if n, err := requestIDNode(); err == nil {
				requestID = n.Generate().String()
			}
		}
		if requestID != "" {
			c.Set(HeaderXRequestID, requestID)
			c.Header(HeaderXRequestID, requestID)
		}
		c.Next()
	}
}
