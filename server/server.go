package server

import "context"

// Server 是可统一管理生命周期的服务：Start 阻塞直到上下文取消或出错，Stop 优雅关闭。
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ Server = (*GinServer)(nil)
