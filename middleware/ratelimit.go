package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wyfcoding/kernelsvm/response"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

// RateLimit 返回进程内令牌桶限流中间件，rps 不大于 0 时不限流。
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			slog.WarnContext(c.Request.Context(), "request rejected by rate limiter", "path", c.Request.URL.Path, "ip", c.ClientIP())
			response.Error(c, xerrors.ErrTooManyRequests.Derive("limit %g req/s, burst %d", rps, burst))
			c.Abort()
			return
		}
		c.Next()
	}
}
