package algorithm

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

func TestRBFSelfSimilarity(t *testing.T) {
	k, err := RBFKernel(0.7)
	require.NoError(t, err)

	for _, x := range [][]float64{
		{0, 0},
		{1.5, -3.25, 8},
		{1e6, -1e-6},
		{},
	} {
		v, err := k.Evaluate(x, x)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v, "k(x, x) for %v", x)
	}
}

func TestRBFValue(t *testing.T) {
	k, err := RBFKernel(0.5)
	require.NoError(t, err)

	v, err := k.Evaluate([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-1), v, 1e-15)
}

func TestPolynomialDegreeOneReduction(t *testing.T) {
	k, err := PolynomialKernel(1)
	require.NoError(t, err)

	a := []float64{1, 2, 3}
	b := []float64{-4, 0.5, 2}
	v, err := k.Evaluate(a, b)
	require.NoError(t, err)

	lin, err := LinearKernel().Evaluate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, lin+1, v, 1e-12)
	assert.InDelta(t, 4.0, v, 1e-12)
}

func TestPolynomialIntegerPower(t *testing.T) {
	k, err := PolynomialKernel(3)
	require.NoError(t, err)

	v, err := k.Evaluate([]float64{1, 1}, []float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)

	// 负底数的整数次幂保持符号
	v, err = k.Evaluate([]float64{-3}, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, -8.0, v)
}

func TestEvaluateDimMismatch(t *testing.T) {
	_, err := LinearKernel().Evaluate([]float64{1, 2}, []float64{1})
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))
}

func TestKernelConstructorsRejectBadParams(t *testing.T) {
	_, err := PolynomialKernel(0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidKernel))

	_, err = RBFKernel(0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidKernel))

	_, err = RBFKernel(math.NaN())
	assert.True(t, errors.Is(err, xerrors.ErrInvalidKernel))

	_, err = RBFKernel(math.Inf(1))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidKernel))

	assert.Error(t, Kernel{Type: KernelType(42)}.Validate())
}

func TestParseKernel(t *testing.T) {
	k, err := ParseKernel("RBF", 0, 0.25)
	require.NoError(t, err)
	assert.Equal(t, Kernel{Type: KernelRBF, Gamma: 0.25}, k)

	k, err = ParseKernel("polynomial", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, Kernel{Type: KernelPolynomial, Degree: 2}, k)

	k, err = ParseKernel("linear", 7, 3)
	require.NoError(t, err)
	assert.Equal(t, LinearKernel(), k)

	_, err = ParseKernel("sigmoid", 0, 0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidKernel))
}

func TestKernelMatrixShapeAndValues(t *testing.T) {
	rows := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	cols := [][]float64{{1, 2}, {3, 4}}

	km, err := KernelMatrix(rows, cols, LinearKernel())
	require.NoError(t, err)

	r, c := km.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1.0, km.At(0, 0))
	assert.Equal(t, 4.0, km.At(1, 1))
	assert.Equal(t, 7.0, km.At(2, 1))
}

func TestKernelMatrixParallelMatchesSequential(t *testing.T) {
	X, _ := twoClusters()
	k, err := RBFKernel(0.5)
	require.NoError(t, err)

	seq, err := KernelMatrix(X, X, k)
	require.NoError(t, err)
	par, err := KernelMatrix(X, X, k, WithWorkers(4))
	require.NoError(t, err)

	assert.Equal(t, seq.RawMatrix().Data, par.RawMatrix().Data)
}

func TestKernelMatrixErrors(t *testing.T) {
	_, err := KernelMatrix(nil, [][]float64{{1}}, LinearKernel())
	assert.True(t, errors.Is(err, xerrors.ErrEmptyData))

	_, err = KernelMatrix([][]float64{{1, 2}}, [][]float64{{1}}, LinearKernel())
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))

	_, err = KernelMatrix([][]float64{{1}}, [][]float64{{1}, {1, 2}}, LinearKernel())
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))
}

func TestKernelTypeText(t *testing.T) {
	b, err := KernelPolynomial.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "polynomial", string(b))

	var kt KernelType
	require.NoError(t, kt.UnmarshalText([]byte(" Rbf ")))
	assert.Equal(t, KernelRBF, kt)

	_, err = KernelType(9).MarshalText()
	assert.Error(t, err)
}
