// Package app 管理长驻进程的生命周期：启动服务、响应退出信号、优雅关闭并执行清理。
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/kernelsvm/server"
)

const defaultStopTimeout = 10 * time.Second

// App 是应用程序的核心容器。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建一个新的应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{stopTimeout: defaultStopTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 启动所有服务并阻塞，直到收到 SIGINT/SIGTERM、parent 被取消或任一服务出错。
// 随后按注册顺序停止服务，再按注册的逆序执行清理函数。
func (a *App) Run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Application starting...", "name", a.name, "pid", os.Getpid())

	errCh := make(chan error, len(a.opts.servers))
	for _, srv := range a.opts.servers {
		go func(s server.Server) {
			errCh <- s.Start(ctx)
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down application", "name", a.name)
	case runErr = <-errCh:
		if runErr != nil {
			a.logger.Error("server failed", "error", runErr)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.stopTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("server failed to stop", "error", err)
			errs = append(errs, err)
		}
	}

	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.logger.Info("application shut down gracefully")
	return nil
}
