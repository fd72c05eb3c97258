// Package metrics 封装 Prometheus 注册表以及训练、预测与 HTTP 服务的标准指标。
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/kernelsvm/algorithm"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及预定义的标准监控指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	HTTPRequestsTotal    *prometheus.CounterVec   // HTTP 请求总量 (维度: method, path, status)
	HTTPRequestDuration  *prometheus.HistogramVec // HTTP 请求耗时分布
	HTTPRequestSizeBytes *prometheus.HistogramVec // 请求体大小分布

	TrainRunsTotal   *prometheus.CounterVec   // 训练次数
	TrainEpochsTotal *prometheus.CounterVec   // 累计完成的 epoch 数
	TrainLoss        *prometheus.GaugeVec     // 最近一次训练最后一个 epoch 的损失
	TrainDuration    *prometheus.HistogramVec // 训练耗时
	ModelAccuracy    *prometheus.GaugeVec     // 维度: kernel, split (train/test)
	PredictionsTotal *prometheus.CounterVec   // 维度: kernel, class (positive/negative/undecided)

	BuildInfo *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.HTTPRequestSizeBytes = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_size_bytes",
		Help:    "HTTP request body size in bytes",
		Buckets: prometheus.ExponentialBuckets(128, 4, 8),
	}, []string{"method", "path"})

	m.TrainRunsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "svm_train_runs_total",
		Help: "Number of completed training runs",
	}, []string{"kernel"})

	m.TrainEpochsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "svm_train_epochs_total",
		Help: "Number of completed training epochs",
	}, []string{"kernel"})

	m.TrainLoss = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "svm_train_loss",
		Help: "Regularized hinge loss after the last epoch of the latest run",
	}, []string{"kernel"})

	m.TrainDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "svm_train_duration_seconds",
		Help:    "Wall time of a training run in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"kernel"})

	m.ModelAccuracy = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "svm_model_accuracy",
		Help: "Accuracy of the current model on a data split",
	}, []string{"kernel", "split"})

	m.PredictionsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "svm_predictions_total",
		Help: "Number of predicted samples by class",
	}, []string{"kernel", "class"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry 返回底层注册表，供测试与自定义采集使用。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTraining 根据损失轨迹记录一次训练。训练本身不产生日志与指标，由调用方在训练结束后上报。
func (m *Metrics) ObserveTraining(k algorithm.Kernel, lossTrace []float64, elapsed time.Duration) {
	kernel := k.Type.String()
	m.TrainRunsTotal.WithLabelValues(kernel).Inc()
	m.TrainEpochsTotal.WithLabelValues(kernel).Add(float64(len(lossTrace)))
	if len(lossTrace) > 0 {
		m.TrainLoss.WithLabelValues(kernel).Set(lossTrace[len(lossTrace)-1])
	}
	m.TrainDuration.WithLabelValues(kernel).Observe(elapsed.Seconds())
}

// ObserveAccuracy 记录模型在某个数据划分上的准确率。
func (m *Metrics) ObserveAccuracy(k algorithm.Kernel, split string, accuracy float64) {
	m.ModelAccuracy.WithLabelValues(k.Type.String(), split).Set(accuracy)
}

// ObservePredictions 按预测类别计数。
func (m *Metrics) ObservePredictions(k algorithm.Kernel, pred []int) {
	var pos, neg, undecided int
	for _, p := range pred {
		switch {
		case p > 0:
			pos++
		case p < 0:
			neg++
		default:
			undecided++
		}
	}
	kernel := k.Type.String()
	m.PredictionsTotal.WithLabelValues(kernel, "positive").Add(float64(pos))
	m.PredictionsTotal.WithLabelValues(kernel, "negative").Add(float64(neg))
	m.PredictionsTotal.WithLabelValues(kernel, "undecided").Add(float64(undecided))
}

// WriteTextfile 把当前全部指标写成 node_exporter textfile 格式，供批处理任务使用。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
