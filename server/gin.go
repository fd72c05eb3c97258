// Package server 提供了启动和管理 HTTP 服务器的封装。
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/kernelsvm/config"
)

const defaultShutdownTimeout = 5 * time.Second

// GinServer 封装了标准的 `http.Server`，专门用于运行 Gin 引擎，并提供了优雅的启动和关闭功能。
type GinServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewGinServer 按服务配置创建一个新的 Gin 服务器实例。
func NewGinServer(engine *gin.Engine, cfg config.ServerConfig, logger *slog.Logger) *GinServer {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &GinServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		shutdownTimeout: timeout,
		logger:          logger,
	}
}

// Start 启动 Gin HTTP 服务器。
// 这是一个阻塞操作，上下文取消后执行优雅关闭。
func (s *GinServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定的监听器上提供服务，语义同 Start。
func (s *GinServer) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting Gin server", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Gin server stopping due to context cancellation")
		return s.Stop(context.Background())
	case err := <-errChan:
		return err
	}
}

// Stop 优雅地停止 Gin 服务器，等待现有请求在关闭超时内完成。
func (s *GinServer) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
