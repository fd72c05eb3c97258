package app

import (
	"time"

	"github.com/wyfcoding/kernelsvm/server"
)

// Option 配置 App。
type Option func(*options)

type options struct {
	servers     []server.Server
	cleanups    []func()
	stopTimeout time.Duration
}

// WithServer 注册随应用启动、关闭的服务。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 注册关闭时执行的清理函数，例如写出指标文件。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}

// WithStopTimeout 设置停止所有服务的总超时。
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}
