package algorithm

import (
	"math"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// KernelType 枚举支持的核函数种类。
type KernelType int

const (
	// KernelLinear 线性核：a·b。
	KernelLinear KernelType = iota
	// KernelPolynomial 多项式核：(a·b + 1)^degree。
	KernelPolynomial
	// KernelRBF 高斯径向基核：exp(-gamma * ‖a-b‖²)。
	KernelRBF
)

var kernelNames = map[KernelType]string{
	KernelLinear:     "linear",
	KernelPolynomial: "polynomial",
	KernelRBF:        "rbf",
}

func (t KernelType) String() string {
	if name, ok := kernelNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText 以名称序列化核类型。
func (t KernelType) MarshalText() ([]byte, error) {
	name, ok := kernelNames[t]
	if !ok {
		return nil, xerrors.ErrInvalidKernel.Derive("unknown kernel type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText 从名称解析核类型，大小写不敏感。
func (t *KernelType) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range kernelNames {
		if v == name {
			*t = k
			return nil
		}
	}
	return xerrors.ErrInvalidKernel.Derive("unknown kernel %q", name)
}

// Kernel 是一个不可变的核函数配置。
// 只有对应类型的参数有意义：Degree 仅用于多项式核，Gamma 仅用于 RBF 核。
type Kernel struct {
	Type   KernelType `json:"type"`
	Degree int        `json:"degree,omitempty"`
	Gamma  float64    `json:"gamma,omitempty"`
}

// LinearKernel 返回线性核。
func LinearKernel() Kernel {
	return Kernel{Type: KernelLinear}
}

// PolynomialKernel 返回指定阶数的多项式核，阶数必须为正整数。
func PolynomialKernel(degree int) (Kernel, error) {
	k := Kernel{Type: KernelPolynomial, Degree: degree}
	return k, k.Validate()
}

// RBFKernel 返回指定 gamma 的 RBF 核，gamma 必须为正的有限实数。
func RBFKernel(gamma float64) (Kernel, error) {
	k := Kernel{Type: KernelRBF, Gamma: gamma}
	return k, k.Validate()
}

// ParseKernel 按名称构造核函数，用于配置与命令行入口。
func ParseKernel(name string, degree int, gamma float64) (Kernel, error) {
	var t KernelType
	if err := t.UnmarshalText([]byte(name)); err != nil {
		return Kernel{}, err
	}
	switch t {
	case KernelPolynomial:
		return PolynomialKernel(degree)
	case KernelRBF:
		return RBFKernel(gamma)
	default:
		return LinearKernel(), nil
	}
}

// Validate 检查核参数。
func (k Kernel) Validate() error {
	switch k.Type {
	case KernelLinear:
		return nil
	case KernelPolynomial:
		if k.Degree < 1 {
			return xerrors.ErrInvalidKernel.Derive("polynomial degree must be a positive integer, got %d", k.Degree)
		}
		return nil
	case KernelRBF:
		if !(k.Gamma > 0) || math.IsInf(k.Gamma, 1) {
			return xerrors.ErrInvalidKernel.Derive("rbf gamma must be positive and finite, got %v", k.Gamma)
		}
		return nil
	default:
		return xerrors.ErrInvalidKernel.Derive("unknown kernel type %d", int(k.Type))
	}
}

// IsLinear 报告该核是否直接作用于原始特征。
func (k Kernel) IsLinear() bool {
	return k.Type == KernelLinear
}

func (k Kernel) String() string {
	switch k.Type {
	case KernelPolynomial:
		return "polynomial(degree=" + strconv.Itoa(k.Degree) + ")"
	case KernelRBF:
		return "rbf(gamma=" + strconv.FormatFloat(k.Gamma, 'g', -1, 64) + ")"
	default:
		return k.Type.String()
	}
}

// Evaluate 计算两个特征向量的相似度。长度不一致时返回维度错误，绝不截断。
func (k Kernel) Evaluate(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, xerrors.ErrDimMismatch.Derive("kernel operands have %d and %d features", len(a), len(b))
	}
	return k.eval(a, b), nil
}

// eval 假定调用方已校验长度。
func (k Kernel) eval(a, b []float64) float64 {
	switch k.Type {
	case KernelPolynomial:
		base := floats.Dot(a, b) + 1
		res := 1.0
		for range k.Degree {
			res *= base
		}
		return res
	case KernelRBF:
		var sq float64
		for i := range a {
			d := a[i] - b[i]
			sq += d * d
		}
		return math.Exp(-k.Gamma * sq)
	default:
		return floats.Dot(a, b)
	}
}

type matrixOptions struct {
	workers int
}

// MatrixOption 配置核矩阵的构建方式。
type MatrixOption func(*matrixOptions)

// WithWorkers 设置并行计算核矩阵行的协程数，n <= 1 时顺序计算。
// 每个元素由同一个纯函数独立求值，并行与否结果逐位一致。
func WithWorkers(n int) MatrixOption {
	return func(o *matrixOptions) {
		o.workers = n
	}
}

// KernelMatrix 构建 len(rows) x len(cols) 的核矩阵，元素 (i, j) = k(rows[i], cols[j])。
// 训练时 rows 与 cols 相同，不利用对称性。
func KernelMatrix(rows, cols [][]float64, k Kernel, opts ...MatrixOption) (*mat.Dense, error) {
	o := &matrixOptions{workers: 1}
	for _, opt := range opts {
		opt(o)
	}

	if err := k.Validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(cols) == 0 {
		return nil, xerrors.ErrEmptyData.Derive("kernel matrix needs non-empty operands, got %d x %d", len(rows), len(cols))
	}
	dim := len(cols[0])
	if err := checkWidth(cols, dim); err != nil {
		return nil, err
	}
	if err := checkWidth(rows, dim); err != nil {
		return nil, err
	}

	out := mat.NewDense(len(rows), len(cols), nil)
	fill := func(i int) {
		dst := out.RawRowView(i)
		for j, c := range cols {
			dst[j] = k.eval(rows[i], c)
		}
	}

	if o.workers <= 1 || len(rows) == 1 {
		for i := range rows {
			fill(i)
		}
		return out, nil
	}

	p := pool.New().WithMaxGoroutines(o.workers)
	for i := range rows {
		p.Go(func() { fill(i) })
	}
	p.Wait()

	return out, nil
}

// checkWidth 校验每一行都有 dim 个特征。
func checkWidth(rows [][]float64, dim int) error {
	for i, r := range rows {
		if len(r) != dim {
			return xerrors.ErrDimMismatch.Derive("row %d has %d features, want %d", i, len(r), dim)
		}
	}
	return nil
}
