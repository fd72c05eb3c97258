package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// flagKeys 把命令行参数名映射到配置键，未出现在 FlagSet 中的参数会被忽略。
var flagKeys = map[string]string{
	"kernel":       "train.kernel",
	"degree":       "train.degree",
	"gamma":        "train.gamma",
	"lr":           "train.learning_rate",
	"lambda":       "train.lambda",
	"epochs":       "train.epochs",
	"workers":      "train.workers",
	"data":         "data.path",
	"test-ratio":   "data.test_ratio",
	"seed":         "data.seed",
	"standardize":  "data.standardize",
	"model-name":   "model.name",
	"model-store":  "model.store",
	"model-dir":    "model.dir",
	"addr":         "server.addr",
	"metrics-file": "metrics.textfile",
	"log-level":    "log.level",
}

// RegisterTrainFlags 注册训练相关参数，默认值与 setDefaults 保持一致。
func RegisterTrainFlags(fs *pflag.FlagSet) {
	fs.String("kernel", "linear", "kernel: linear, polynomial or rbf")
	fs.Int("degree", 3, "polynomial kernel degree")
	fs.Float64("gamma", 0.5, "rbf kernel gamma")
	fs.Float64("lr", 0.001, "learning rate")
	fs.Float64("lambda", 0.01, "L2 regularization strength")
	fs.Int("epochs", 1000, "number of passes over the training set")
	fs.Int("workers", 1, "parallelism when building kernel matrices")
	fs.Float64("test-ratio", 0.2, "fraction of samples held out for evaluation")
	fs.Uint64("seed", 42, "shuffle seed for the train/test split")
	fs.Bool("standardize", true, "standardize features before training")
}

// RegisterModelFlags 注册模型存储相关参数。
func RegisterModelFlags(fs *pflag.FlagSet) {
	fs.String("model-name", "model", "name of the stored model artifact")
	fs.String("model-store", "file", "model store driver: file or minio")
	fs.String("model-dir", "models", "directory of the file model store")
}

// RegisterCommonFlags 注册所有命令共享的参数。
func RegisterCommonFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a TOML config file")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return xerrors.Wrap(err, xerrors.ErrInvalidArg, "bind flag --"+name)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "v1")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.console", false)

	v.SetDefault("train.kernel", "linear")
	v.SetDefault("train.degree", 3)
	v.SetDefault("train.gamma", 0.5)
	v.SetDefault("train.learning_rate", 0.001)
	v.SetDefault("train.lambda", 0.01)
	v.SetDefault("train.epochs", 1000)
	v.SetDefault("train.workers", 1)

	v.SetDefault("data.path", "")
	v.SetDefault("data.has_header", true)
	v.SetDefault("data.label_column", -1)
	v.SetDefault("data.comma", ",")
	v.SetDefault("data.test_ratio", 0.2)
	v.SetDefault("data.seed", 42)
	v.SetDefault("data.standardize", true)

	v.SetDefault("model.name", "model")
	v.SetDefault("model.store", "file")
	v.SetDefault("model.dir", "models")
	v.SetDefault("model.prefix", "models")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.bucket_name", "")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("server.name", "kernelsvm")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_body_bytes", 4<<20)
	v.SetDefault("server.max_batch", 10000)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 100)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.textfile", "")
}
