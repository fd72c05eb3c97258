package algorithm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

func TestSnapshotJSONRestoresPredictions(t *testing.T) {
	X, y := twoClusters()
	poly, err := PolynomialKernel(2)
	require.NoError(t, err)

	for _, k := range []Kernel{LinearKernel(), mustRBF(t, 0.5), poly} {
		svm := newTestSVM(t, k)
		require.NoError(t, svm.Train(X, y))

		snap, err := svm.Snapshot()
		require.NoError(t, err)

		raw, err := json.Marshal(snap)
		require.NoError(t, err)

		var decoded Snapshot
		require.NoError(t, json.Unmarshal(raw, &decoded))

		restored, err := Restore(decoded)
		require.NoError(t, err)

		want, err := svm.DecisionFunction(X)
		require.NoError(t, err)
		got, err := restored.DecisionFunction(X)
		require.NoError(t, err)

		assert.Equal(t, want, got, k.String())
		assert.Equal(t, svm.Kernel(), restored.Kernel())
		assert.Equal(t, svm.LossTrace(), restored.LossTrace())
	}
}

func TestSnapshotKernelEncoding(t *testing.T) {
	raw, err := json.Marshal(Snapshot{Config: Config{Kernel: Kernel{Type: KernelRBF, Gamma: 0.5}}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"rbf"`)
	assert.Contains(t, string(raw), `"gamma":0.5`)
}

func TestSnapshotUntrained(t *testing.T) {
	_, err := newTestSVM(t, LinearKernel()).Snapshot()
	assert.True(t, errors.Is(err, xerrors.ErrNotTrained))
}

func TestRestoreChecksInvariants(t *testing.T) {
	cfg := Config{LearningRate: 0.1, Lambda: 0.1, Epochs: 1, Kernel: LinearKernel()}
	rbfCfg := cfg
	rbfCfg.Kernel = Kernel{Type: KernelRBF, Gamma: 1}

	_, err := Restore(Snapshot{Config: cfg})
	assert.True(t, errors.Is(err, xerrors.ErrEmptyData))

	_, err = Restore(Snapshot{Config: cfg, Weights: []float64{1}, TrainX: [][]float64{{1}}})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidConfig))

	_, err = Restore(Snapshot{Config: rbfCfg, Weights: []float64{1, 2}, TrainX: [][]float64{{1}}})
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))

	_, err = Restore(Snapshot{Config: rbfCfg, Weights: []float64{1, 2}, TrainX: [][]float64{{1}, {1, 2}}})
	assert.True(t, errors.Is(err, xerrors.ErrDimMismatch))

	_, err = Restore(Snapshot{Config: Config{Kernel: LinearKernel()}, Weights: []float64{1}})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidConfig))
}
