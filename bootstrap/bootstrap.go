// Package bootstrap 完成命令行工具共用的初始化：解析参数、加载配置、初始化日志。
package bootstrap

import (
	"github.com/spf13/pflag"

	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/logging"
)

// Bootstrapper 处理通用基础设施的初始化
type Bootstrapper struct {
	ServiceName string
	Version     string
	Flags       *pflag.FlagSet
	Config      *config.Config
	Logger      *logging.Logger
}

// New 创建引导器并注册 --config 与 --log-level。调用方在 Initialize 之前注册自己的参数。
func New(serviceName, version string) *Bootstrapper {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	config.RegisterCommonFlags(fs)
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
		Flags:       fs,
	}
}

// Initialize 解析命令行参数、加载配置，并按配置初始化全局日志。
func (b *Bootstrapper) Initialize(args []string) error {
	if err := b.Flags.Parse(args); err != nil {
		return err
	}
	path, err := b.Flags.GetString("config")
	if err != nil {
		return err
	}

	conf, err := config.Load(path, b.Flags)
	if err != nil {
		return err
	}
	if conf.Version == "" {
		conf.Version = b.Version
	}
	b.Config = conf
	b.Logger = logging.Init(conf.LoggingConfig(b.ServiceName))
	config.PrintWithMask(conf)
	return nil
}
