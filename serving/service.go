// Package serving 把训练好的模型发布为 HTTP 预测服务。
package serving

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/metrics"
	"github.com/wyfcoding/kernelsvm/modelstore"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

type loadedModel struct {
	artifact *modelstore.Artifact
	svm      *algorithm.SVM
}

// Service 持有当前在线的模型。模型可以在运行中整体替换，正在处理的请求继续使用旧模型。
type Service struct {
	current  atomic.Pointer[loadedModel]
	metrics  *metrics.Metrics
	maxBatch int
}

// NewService 创建预测服务，m 可为 nil；maxBatch 为 0 表示不限制单次请求样本数。
func NewService(m *metrics.Metrics, maxBatch int) *Service {
	return &Service{metrics: m, maxBatch: maxBatch}
}

// SetArtifact 校验并上线一个模型产物。
func (s *Service) SetArtifact(a *modelstore.Artifact) error {
	if a == nil {
		return xerrors.ErrInvalidModel.Derive("nil artifact")
	}
	svm, err := a.SVM()
	if err != nil {
		return err
	}
	s.current.Store(&loadedModel{artifact: a, svm: svm})

	if s.metrics != nil {
		s.metrics.ObserveAccuracy(svm.Kernel(), "train", a.TrainAccuracy)
		if a.TestSamples > 0 {
			s.metrics.ObserveAccuracy(svm.Kernel(), "test", a.TestAccuracy)
		}
	}
	return nil
}

// Reload 从存储中读取并上线指定模型，失败时保留当前模型。
func (s *Service) Reload(ctx context.Context, store modelstore.Store, name string) error {
	a, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	return s.SetArtifact(a)
}

func (s *Service) model() (*loadedModel, error) {
	m := s.current.Load()
	if m == nil {
		return nil, xerrors.ErrNotTrained.Derive("no model is loaded")
	}
	return m, nil
}

// PredictResult 是一批样本的预测结果，与输入按行对应。
type PredictResult struct {
	Predictions []int     `json:"predictions"`
	Scores      []float64 `json:"scores"`
}

// Predict 对一批样本打分。standardized 为 false 且模型带有标准化参数时先做标准化。
func (s *Service) Predict(samples [][]float64, standardized bool) (*PredictResult, error) {
	m, err := s.model()
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, xerrors.ErrEmptyData.Derive("no samples to predict")
	}
	if s.maxBatch > 0 && len(samples) > s.maxBatch {
		return nil, xerrors.ErrBadRequest.Derive("batch of %d samples exceeds limit %d", len(samples), s.maxBatch)
	}

	X := samples
	if !standardized && m.artifact.Scaler != nil {
		if X, err = m.artifact.Scaler.Transform(samples); err != nil {
			return nil, err
		}
	}

	scores, err := m.svm.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	pred := make([]int, len(scores))
	for i, v := range scores {
		pred[i] = algorithm.Sign(v)
	}

	if s.metrics != nil {
		s.metrics.ObservePredictions(m.svm.Kernel(), pred)
	}
	return &PredictResult{Predictions: pred, Scores: scores}, nil
}

// ModelInfo 描述当前在线模型。
type ModelInfo struct {
	Name          string           `json:"name"`
	CreatedAt     time.Time        `json:"created_at"`
	Kernel        algorithm.Kernel `json:"kernel"`
	Features      int              `json:"features"`
	Weights       int              `json:"weights"`
	Bias          float64          `json:"bias"`
	Epochs        int              `json:"epochs"`
	FinalLoss     *float64         `json:"final_loss,omitempty"`
	Standardized  bool             `json:"standardized"`
	TrainAccuracy float64          `json:"train_accuracy"`
	TestAccuracy  float64          `json:"test_accuracy"`
	TestSamples   int              `json:"test_samples"`
}

// Info 返回当前在线模型的摘要。
func (s *Service) Info() (*ModelInfo, error) {
	m, err := s.model()
	if err != nil {
		return nil, err
	}
	a := m.artifact
	info := &ModelInfo{
		Name:          a.Name,
		CreatedAt:     a.CreatedAt,
		Kernel:        m.svm.Kernel(),
		Features:      m.svm.NumFeatures(),
		Weights:       len(a.Model.Weights),
		Bias:          m.svm.Bias(),
		Epochs:        m.svm.Config().Epochs,
		Standardized:  a.Scaler != nil,
		TrainAccuracy: a.TrainAccuracy,
		TestAccuracy:  a.TestAccuracy,
		TestSamples:   a.TestSamples,
	}
	if trace := m.svm.LossTrace(); len(trace) > 0 {
		last := trace[len(trace)-1]
		info.FinalLoss = &last
	}
	return info, nil
}
