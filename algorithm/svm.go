package algorithm

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// Config 定义 SVM 的训练超参数，构造后不可变。
type Config struct {
	LearningRate float64 `json:"learning_rate"` // 学习率，必须为正。
	Lambda       float64 `json:"lambda"`        // L2 正则化系数，必须为正。
	Epochs       int     `json:"epochs"`        // 训练轮数，必须为正。
	Kernel       Kernel  `json:"kernel"`
	Workers      int     `json:"-"` // 构建核矩阵的并行度，不影响训练结果。
}

// Validate 在构造阶段拒绝非法配置。
func (c Config) Validate() error {
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 1) {
		return xerrors.ErrInvalidConfig.Derive("learning rate must be positive and finite, got %v", c.LearningRate)
	}
	if !(c.Lambda > 0) || math.IsInf(c.Lambda, 1) {
		return xerrors.ErrInvalidConfig.Derive("lambda must be positive and finite, got %v", c.Lambda)
	}
	if c.Epochs < 1 {
		return xerrors.ErrInvalidConfig.Derive("epochs must be a positive integer, got %d", c.Epochs)
	}
	return c.Kernel.Validate()
}

// SVM 结构体实现了基于合页损失的二分类支持向量机。
// 训练在原始问题上做逐样本的次梯度下降：线性核直接拟合特征权重；
// 非线性核先计算训练核矩阵，再把核矩阵的行当作特征拟合一个长度为样本数的权重向量，
// 因此预测新样本时需要保留训练特征矩阵。
// 决策函数为 W·x - bias（注意偏置取减号）。
type SVM struct {
	cfg       Config
	weights   []float64   // 线性核时长度为特征数，否则为训练样本数。
	bias      float64     // 偏置项，在决策函数中被减去。
	trainX    [][]float64 // 非线性核保留的原始训练特征，线性核为 nil。
	lossTrace []float64   // 每个完成的 epoch 追加一个损失值。
	trained   bool
	mu        sync.RWMutex
}

// NewSVM 创建并返回一个零权重、零偏置的 SVM 实例。
func NewSVM(cfg Config) (*SVM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SVM{cfg: cfg}, nil
}

// CoerceLabels 把任意实数标签映射到 {-1, +1}：非正数为 -1，其余为 +1。
func CoerceLabels(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		if v <= 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out
}

// Train 在 X、y 上从零开始训练模型，重复调用会完全重建模型状态。
// X 应为已标准化的 n_samples x n_features 矩阵；y 会被强制转换为 {-1, +1}。
// 样本按给定顺序逐个更新，不做任何打乱，相同输入得到逐位相同的结果。
// NaN/Inf 不做特殊处理，会直接传播到权重、偏置与损失。
func (svm *SVM) Train(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return xerrors.ErrEmptyData.Derive("training set has no samples")
	}
	if len(y) != len(X) {
		return xerrors.ErrDimMismatch.Derive("got %d labels for %d samples", len(y), len(X))
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return xerrors.ErrEmptyData.Derive("training samples have no features")
	}
	if err := checkWidth(X, nFeatures); err != nil {
		return err
	}

	labels := CoerceLabels(y)

	var (
		operand *mat.Dense
		trainX  [][]float64
	)
	if svm.cfg.Kernel.IsLinear() {
		operand = denseFromRows(X)
	} else {
		k, err := KernelMatrix(X, X, svm.cfg.Kernel, WithWorkers(svm.cfg.Workers))
		if err != nil {
			return err
		}
		operand = k
		trainX = cloneRows(X)
	}

	_, cols := operand.Dims()
	weights := make([]float64, cols)
	bias := 0.0
	trace := make([]float64, 0, svm.cfg.Epochs)

	lr := svm.cfg.LearningRate
	lambda := svm.cfg.Lambda

	for range svm.cfg.Epochs {
		for i, yi := range labels {
			row := operand.RawRowView(i)
			margin := yi * (floats.Dot(weights, row) - bias)

			if margin >= 1 {
				// 已正确分类且间隔足够，仅做正则化衰减。
				for j := range weights {
					weights[j] -= lr * (2 * lambda * weights[j])
				}
				continue
			}

			for j := range weights {
				weights[j] -= lr * (2*lambda*weights[j] - row[j]*yi)
			}
			bias -= lr * yi
		}

		trace = append(trace, HingeLoss(weights, bias, operand, labels, lambda))
	}

	svm.mu.Lock()
	defer svm.mu.Unlock()

	svm.weights = weights
	svm.bias = bias
	svm.trainX = trainX
	svm.lossTrace = trace
	svm.trained = true

	return nil
}

// HingeLoss 计算正则化合页损失：lambda*‖W‖² + mean(max(0, 1 - y*(W·x - bias)))。
// operand 的每一行是一个样本（线性核为特征，非线性核为核矩阵行），y 应已转换为 {-1, +1}。
func HingeLoss(weights []float64, bias float64, operand mat.Matrix, y []float64, lambda float64) float64 {
	rows, _ := operand.Dims()
	row := make([]float64, len(weights))

	var hinge float64
	for i := range rows {
		mat.Row(row, i, operand)
		if l := 1 - y[i]*(floats.Dot(weights, row)-bias); l > 0 {
			hinge += l
		}
	}

	return lambda*floats.Dot(weights, weights) + hinge/float64(rows)
}

// DecisionFunction 返回每个查询样本的决策值 W·x - bias。
// 非线性核会先计算查询样本与保留训练样本之间的核矩阵。
func (svm *SVM) DecisionFunction(X [][]float64) ([]float64, error) {
	svm.mu.RLock()
	defer svm.mu.RUnlock()

	if len(X) == 0 {
		return []float64{}, nil
	}

	if svm.cfg.Kernel.IsLinear() {
		return svm.linearScores(X)
	}

	if !svm.trained {
		return nil, xerrors.ErrNotTrained.Derive("%s kernel needs the retained training matrix", svm.cfg.Kernel)
	}
	if err := checkWidth(X, len(svm.trainX[0])); err != nil {
		return nil, err
	}

	k, err := KernelMatrix(X, svm.trainX, svm.cfg.Kernel, WithWorkers(svm.cfg.Workers))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(X))
	for i := range scores {
		scores[i] = floats.Dot(svm.weights, k.RawRowView(i)) - svm.bias
	}
	return scores, nil
}

// linearScores 调用方需持有读锁。未训练的线性模型权重视为零向量，得分恒为 -bias = 0。
func (svm *SVM) linearScores(X [][]float64) ([]float64, error) {
	dim := len(svm.weights)
	if !svm.trained {
		dim = len(X[0])
	}
	if err := checkWidth(X, dim); err != nil {
		return nil, err
	}

	scores := make([]float64, len(X))
	if !svm.trained {
		return scores, nil
	}
	for i, row := range X {
		scores[i] = floats.Dot(svm.weights, row) - svm.bias
	}
	return scores, nil
}

// Predict 返回每个查询样本的类别：+1、-1，决策值恰好为 0 时返回 0。
func (svm *SVM) Predict(X [][]float64) ([]int, error) {
	scores, err := svm.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scores))
	for i, s := range scores {
		out[i] = Sign(s)
	}
	return out, nil
}

// Sign 返回 v 的符号，0 是独立的合法输出。NaN 同样返回 0。
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Kernel 返回模型的核配置。
func (svm *SVM) Kernel() Kernel {
	return svm.cfg.Kernel
}

// Config 返回模型的超参数。
func (svm *SVM) Config() Config {
	return svm.cfg
}

// Weights 返回权重向量的副本。
func (svm *SVM) Weights() []float64 {
	svm.mu.RLock()
	defer svm.mu.RUnlock()
	return append([]float64(nil), svm.weights...)
}

// Bias 返回偏置项。
func (svm *SVM) Bias() float64 {
	svm.mu.RLock()
	defer svm.mu.RUnlock()
	return svm.bias
}

// LossTrace 返回每个 epoch 结束时的损失值副本，仅用于诊断。
func (svm *SVM) LossTrace() []float64 {
	svm.mu.RLock()
	defer svm.mu.RUnlock()
	return append([]float64(nil), svm.lossTrace...)
}

// Trained 报告 Train 是否成功执行过。
func (svm *SVM) Trained() bool {
	svm.mu.RLock()
	defer svm.mu.RUnlock()
	return svm.trained
}

// NumFeatures 返回模型期望的输入特征数，未训练时为 0。
func (svm *SVM) NumFeatures() int {
	svm.mu.RLock()
	defer svm.mu.RUnlock()
	switch {
	case !svm.trained:
		return 0
	case svm.cfg.Kernel.IsLinear():
		return len(svm.weights)
	default:
		return len(svm.trainX[0])
	}
}

func denseFromRows(X [][]float64) *mat.Dense {
	cols := len(X[0])
	data := make([]float64, 0, len(X)*cols)
	for _, r := range X {
		data = append(data, r...)
	}
	return mat.NewDense(len(X), cols, data)
}

func cloneRows(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, r := range X {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
