package algorithm

import "github.com/wyfcoding/kernelsvm/xerrors"

// Snapshot 是 SVM 训练结果的可序列化表示，存储布局由调用方决定。
type Snapshot struct {
	Config    Config      `json:"config"`
	Weights   []float64   `json:"weights"`
	Bias      float64     `json:"bias"`
	TrainX    [][]float64 `json:"train_x,omitempty"`
	LossTrace []float64   `json:"loss_trace,omitempty"`
}

// Snapshot 导出当前模型状态的深拷贝。未训练的模型返回错误。
func (svm *SVM) Snapshot() (Snapshot, error) {
	svm.mu.RLock()
	defer svm.mu.RUnlock()

	if !svm.trained {
		return Snapshot{}, xerrors.ErrNotTrained.Derive("nothing to snapshot")
	}

	return Snapshot{
		Config:    svm.cfg,
		Weights:   append([]float64(nil), svm.weights...),
		Bias:      svm.bias,
		TrainX:    cloneRows(svm.trainX),
		LossTrace: append([]float64(nil), svm.lossTrace...),
	}, nil
}

// Restore 从快照重建一个已训练的模型，并重新校验模型状态的不变量：
// 线性核不保留训练矩阵且权重长度为特征数；非线性核必须保留训练矩阵且权重长度为样本数。
func Restore(s Snapshot) (*SVM, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	if len(s.Weights) == 0 {
		return nil, xerrors.ErrEmptyData.Derive("snapshot has no weights")
	}

	if s.Config.Kernel.IsLinear() {
		if len(s.TrainX) != 0 {
			return nil, xerrors.ErrInvalidConfig.Derive("linear snapshot must not retain a training matrix")
		}
	} else {
		if len(s.TrainX) != len(s.Weights) {
			return nil, xerrors.ErrDimMismatch.Derive("%s snapshot has %d weights for %d retained samples",
				s.Config.Kernel, len(s.Weights), len(s.TrainX))
		}
		if len(s.TrainX[0]) == 0 {
			return nil, xerrors.ErrEmptyData.Derive("retained samples have no features")
		}
		if err := checkWidth(s.TrainX, len(s.TrainX[0])); err != nil {
			return nil, err
		}
	}

	var trainX [][]float64
	if len(s.TrainX) > 0 {
		trainX = cloneRows(s.TrainX)
	}

	return &SVM{
		cfg:       s.Config,
		weights:   append([]float64(nil), s.Weights...),
		bias:      s.Bias,
		trainX:    trainX,
		lossTrace: append([]float64(nil), s.LossTrace...),
		trained:   true,
	}, nil
}
