// Command svm-serve 加载模型并提供 HTTP 预测服务，支持配置热更新切换模型。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wyfcoding/kernelsvm/app"
	"github.com/wyfcoding/kernelsvm/bootstrap"
	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/logging"
	"github.com/wyfcoding/kernelsvm/metrics"
	"github.com/wyfcoding/kernelsvm/modelstore"
	"github.com/wyfcoding/kernelsvm/server"
	"github.com/wyfcoding/kernelsvm/serving"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "svm-serve:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	b := bootstrap.New("svm-serve", version)
	config.RegisterModelFlags(b.Flags)
	b.Flags.String("addr", ":8080", "HTTP listen address")
	if err := b.Initialize(args); err != nil {
		return err
	}
	conf := b.Config

	store, err := modelstore.New(ctx, conf.Model, conf.Minio)
	if err != nil {
		return err
	}
	if ms, ok := store.(*modelstore.MinioStore); ok {
		modelstore.RegisterReloadHook(ms)
	}

	m := metrics.NewMetrics(b.ServiceName)
	m.RegisterBuildInfo(b.ServiceName, version)

	svc := serving.NewService(m, conf.Server.MaxBatch)
	done := logging.LogDuration(ctx, "load model", "name", conf.Model.Name)
	if err := svc.Reload(ctx, store, conf.Model.Name); err != nil {
		return err
	}
	done()

	modelName := conf.Model.Name
	config.RegisterReloadHook(func(updated *config.Config) {
		if updated.Model.Name == modelName {
			return
		}
		if err := svc.Reload(ctx, store, updated.Model.Name); err != nil {
			logging.Error(ctx, "model reload failed, keeping previous", "name", updated.Model.Name, "error", err)
			return
		}
		logging.Info(ctx, "model switched", "from", modelName, "to", updated.Model.Name)
		modelName = updated.Model.Name
	})
	config.Watch()

	engine := serving.NewRouter(svc, m, b.Logger.Logger, conf.Server, conf.Metrics)
	srv := server.NewGinServer(engine, conf.Server, b.Logger.Logger)

	return app.New(b.ServiceName, b.Logger.Logger,
		app.WithServer(srv),
		app.WithStopTimeout(conf.Server.ShutdownTimeout),
	).Run(ctx)
}
