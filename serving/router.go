package serving

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/metrics"
	"github.com/wyfcoding/kernelsvm/middleware"
	"github.com/wyfcoding/kernelsvm/server"
)

// NewRouter 组装预测服务的路由与中间件。m 为 nil 时不采集也不暴露指标。
func NewRouter(svc *Service, m *metrics.Metrics, logger *slog.Logger, cfg config.ServerConfig, metricsCfg config.MetricsConfig) *gin.Engine {
	metricsPath := metricsCfg.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	engine := server.NewDefaultGinEngine(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.SecurityHeaders(),
		middleware.TracingMiddleware(cfg.Name),
		middleware.Logger(logger),
		middleware.HTTPMetricsMiddleware(m, middleware.MetricsOptions{SkipPaths: []string{metricsPath, "/healthz"}}),
	)

	h := NewHandler(svc)
	engine.GET("/healthz", h.Healthz)
	if m != nil && metricsCfg.Enabled {
		engine.GET(metricsPath, gin.WrapH(m.Handler()))
	}

	v1 := engine.Group("/v1", middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	v1.GET("/model", h.Model)
	v1.POST("/predict", middleware.MaxBodyBytes(cfg.MaxBodyBytes), h.Predict)

	return engine
}
