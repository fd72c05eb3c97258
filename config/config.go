// Package config 提供了统一的配置加载与管理能力.
// 加载顺序（后者覆盖前者）：默认值 -> TOML 配置文件 -> SVM_ 前缀环境变量 -> 显式设置的命令行参数。
package config

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/dataset"
	"github.com/wyfcoding/kernelsvm/logging"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 SVM_TRAIN_EPOCHS。
const EnvPrefix = "SVM"

// Config 全局顶级配置结构.
type Config struct {
	Version string        `mapstructure:"version" toml:"version"`
	Log     LogConfig     `mapstructure:"log"     toml:"log"`
	Train   TrainConfig   `mapstructure:"train"   toml:"train"`
	Data    DataConfig    `mapstructure:"data"    toml:"data"`
	Model   ModelConfig   `mapstructure:"model"   toml:"model"`
	Minio   MinioConfig   `mapstructure:"minio"   toml:"minio"`
	Server  ServerConfig  `mapstructure:"server"  toml:"server"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"  validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format"      toml:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"        toml:"file"`        // 日志文件路径，为空只输出到标准输出。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"` // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`     // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
	Console    bool   `mapstructure:"console"     toml:"console"` // 写文件时是否同时输出到标准输出。
}

// TrainConfig 定义核函数与训练超参数.
type TrainConfig struct {
	Kernel       string  `mapstructure:"kernel"        toml:"kernel"        validate:"oneof=linear polynomial rbf"`
	Degree       int     `mapstructure:"degree"        toml:"degree"        validate:"min=1"`
	Gamma        float64 `mapstructure:"gamma"         toml:"gamma"         validate:"gt=0"`
	LearningRate float64 `mapstructure:"learning_rate" toml:"learning_rate" validate:"gt=0"`
	Lambda       float64 `mapstructure:"lambda"        toml:"lambda"        validate:"gt=0"`
	Epochs       int     `mapstructure:"epochs"        toml:"epochs"        validate:"min=1"`
	Workers      int     `mapstructure:"workers"       toml:"workers"       validate:"min=0"` // 核矩阵构建并行度，0 与 1 均为串行。
}

// DataConfig 定义训练数据的读取、划分与标准化.
type DataConfig struct {
	Path        string  `mapstructure:"path"         toml:"path"`
	HasHeader   bool    `mapstructure:"has_header"   toml:"has_header"`
	LabelColumn int     `mapstructure:"label_column" toml:"label_column"` // 负数从末尾倒数。
	Comma       string  `mapstructure:"comma"        toml:"comma"        validate:"max=1"`
	TestRatio   float64 `mapstructure:"test_ratio"   toml:"test_ratio"   validate:"gte=0,lt=1"`
	Seed        uint64  `mapstructure:"seed"         toml:"seed"`
	Standardize bool    `mapstructure:"standardize"  toml:"standardize"`
}

// ModelConfig 定义模型产物的存储位置.
type ModelConfig struct {
	Name   string `mapstructure:"name"   toml:"name"   validate:"required"`
	Store  string `mapstructure:"store"  toml:"store"  validate:"oneof=file minio"`
	Dir    string `mapstructure:"dir"    toml:"dir"`    // file 驱动的目录。
	Prefix string `mapstructure:"prefix" toml:"prefix"` // minio 驱动的对象前缀。
}

// MinioConfig 定义 S3 兼容对象存储 MinIO 的连接参数.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"          toml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"     toml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       toml:"bucket_name"`
	Region          string `mapstructure:"region"            toml:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"           toml:"use_ssl"`
}

// ServerConfig 定义预测服务的网络参数.
type ServerConfig struct {
	Name            string        `mapstructure:"name"             toml:"name"        validate:"required"`
	Environment     string        `mapstructure:"environment"      toml:"environment" validate:"oneof=dev test prod"`
	Addr            string        `mapstructure:"addr"             toml:"addr"        validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     toml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    toml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"     toml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   toml:"max_body_bytes"`
	MaxBatch        int           `mapstructure:"max_batch"        toml:"max_batch"`  // 单次预测请求的最大样本数，0 表示不限制。
	RateLimit       float64       `mapstructure:"rate_limit"       toml:"rate_limit"` // 每秒请求数，0 表示不限流。
	RateBurst       int           `mapstructure:"rate_burst"       toml:"rate_burst"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"  toml:"enabled"`
	Path     string `mapstructure:"path"     toml:"path"`
	Textfile string `mapstructure:"textfile" toml:"textfile"` // 批处理任务结束时写出的指标文件。
}

// AlgorithmConfig 把训练配置转换为算法层的不可变配置。
func (c TrainConfig) AlgorithmConfig() (algorithm.Config, error) {
	k, err := algorithm.ParseKernel(c.Kernel, c.Degree, c.Gamma)
	if err != nil {
		return algorithm.Config{}, err
	}
	cfg := algorithm.Config{
		LearningRate: c.LearningRate,
		Lambda:       c.Lambda,
		Epochs:       c.Epochs,
		Kernel:       k,
		Workers:      c.Workers,
	}
	return cfg, cfg.Validate()
}

// CSVOptions 返回训练数据的解析选项。
func (c DataConfig) CSVOptions() dataset.CSVOptions {
	opts := dataset.CSVOptions{HasHeader: c.HasHeader, LabelColumn: c.LabelColumn}
	if c.Comma != "" {
		opts.Comma = []rune(c.Comma)[0]
	}
	return opts
}

// LoggingConfig 把日志配置转换为 logging 包的配置。
func (c *Config) LoggingConfig(module string) logging.Config {
	return logging.Config{
		Service:    c.Server.Name,
		Module:     module,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
		Console:    c.Log.Console,
	}
}

var (
	vMu       sync.Mutex
	vInstance = viper.New()
	current   atomic.Pointer[Config]
	validate  = validator.New()

	hookMu   sync.Mutex
	onReload []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hookMu.Lock()
	onReload = append(onReload, hook)
	hookMu.Unlock()
}

// Load 读取配置。path 为空时只使用默认值、环境变量与命令行参数。
// flags 可为 nil；只有被显式设置的参数才会覆盖配置文件。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "read config "+path)
		}
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}

	vMu.Lock()
	vInstance = v
	vMu.Unlock()
	current.Store(conf)
	return conf, nil
}

func decode(v *viper.Viper) (*Config, error) {
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "unmarshal config")
	}
	if err := validate.Struct(conf); err != nil {
		return nil, xerrors.ErrInvalidConfig.Derive("config validation failed: %v", err)
	}
	return conf, nil
}

// Watch 监听已加载的配置文件。变更后重新解析并校验，
// 校验通过才替换当前配置、调整日志级别并依次调用热更新回调；失败时保留旧配置。
func Watch() {
	vMu.Lock()
	v := vInstance
	vMu.Unlock()
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name, "op", event.Op.String())

		next, err := decode(v)
		if err != nil {
			slog.Error("reload config failed, keeping previous", "error", err)
			return
		}
		current.Store(next)
		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		hookMu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		hookMu.Unlock()
		for _, hook := range hooks {
			hook(next)
		}
	})
	v.WatchConfig()
}

// Current 返回最近一次成功加载或热更新的配置。
func Current() *Config {
	return current.Load()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	masked, err := MaskedJSON(conf)
	if err != nil {
		slog.Error("failed to mask config for printing", "error", err)
		return
	}
	slog.Info("Current effective configuration", "config", masked)
}

// MaskedJSON 返回把敏感字段替换为 ****** 后的 JSON。
func MaskedJSON(conf any) (string, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return "", err
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		return "", err
	}

	mask(configMap)

	maskedJSON, err := json.MarshalIndent(configMap, "", "  ")
	if err != nil {
		return "", err
	}
	return string(maskedJSON), nil
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		if slice, ok := val.([]any); ok {
			for _, item := range slice {
				if itemMap, ok := item.(map[string]any); ok {
					mask(itemMap)
				}
			}
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回最近一次 Load 使用的 Viper 实例.
func GetViper() *viper.Viper {
	vMu.Lock()
	defer vMu.Unlock()
	return vInstance
}
