package dataset

import (
	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// StandardScaler 把每一列缩放为零均值、单位方差（总体标准差）。
// 标准差为 0 的列按 1 处理，变换后恒为 0。
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit 计算每列的均值与标准差。
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return xerrors.ErrEmptyData.Derive("cannot fit scaler on empty matrix")
	}
	cols := len(X[0])
	for i, row := range X {
		if len(row) != cols {
			return xerrors.ErrDimMismatch.Derive("row %d has %d features, want %d", i, len(row), cols)
		}
	}

	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	col := make([]float64, len(X))
	for j := range cols {
		for i := range X {
			col[i] = X[i][j]
		}
		m, sd := stat.PopMeanStdDev(col, nil)
		if len(col) == 1 {
			// 单样本时 gonum 的无偏方差为 0/0
			sd = 0
		}
		if sd == 0 {
			sd = 1
		}
		s.Mean[j], s.Std[j] = m, sd
	}
	return nil
}

// Transform 返回缩放后的新矩阵，不修改输入。
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if len(s.Mean) == 0 {
		return nil, xerrors.ErrNotTrained.Derive("scaler has not been fitted")
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, xerrors.ErrDimMismatch.Derive("row %d has %d features, scaler fitted on %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform 先 Fit 再 Transform。
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
