package modelstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/dataset"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

func trainedArtifact(t *testing.T, name string) *Artifact {
	t.Helper()
	k, err := algorithm.RBFKernel(0.5)
	require.NoError(t, err)
	svm, err := algorithm.NewSVM(algorithm.Config{LearningRate: 0.01, Lambda: 0.01, Epochs: 20, Kernel: k})
	require.NoError(t, err)

	X := [][]float64{{-2, -2}, {-1.5, -2.5}, {2, 2}, {2.5, 1.5}}
	require.NoError(t, svm.Train(X, []float64{0, 0, 1, 1}))
	snap, err := svm.Snapshot()
	require.NoError(t, err)

	return &Artifact{
		Name:          name,
		CreatedAt:     time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Model:         snap,
		Scaler:        &dataset.StandardScaler{Mean: []float64{0, 0}, Std: []float64{1, 1}},
		TrainAccuracy: 1,
		TestAccuracy:  0.75,
		TestSamples:   4,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	a := trainedArtifact(t, "clusters-v1")
	require.NoError(t, store.Save(context.Background(), a))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must be cleaned up")
	assert.Equal(t, "clusters-v1.json", entries[0].Name())

	got, err := store.Load(context.Background(), "clusters-v1")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	want, err := a.SVM()
	require.NoError(t, err)
	restored, err := got.SVM()
	require.NoError(t, err)

	query := [][]float64{{-1, -1}, {1, 1}}
	wantScores, err := want.DecisionFunction(query)
	require.NoError(t, err)
	gotScores, err := restored.DecisionFunction(query)
	require.NoError(t, err)
	assert.Equal(t, wantScores, gotScores)
}

func TestFileStoreOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	a := trainedArtifact(t, "m")
	require.NoError(t, store.Save(context.Background(), a))
	a.TestAccuracy = 0.5
	require.NoError(t, store.Save(context.Background(), a))

	got, err := store.Load(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.TestAccuracy)
}

func TestFileStoreErrors(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx, "missing")
	assert.True(t, errors.Is(err, xerrors.ErrModelNotFound))
	assert.Equal(t, http.StatusNotFound, mustXErr(t, err).HTTPStatus())

	_, err = store.Load(ctx, "../escape")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidModel))

	assert.True(t, errors.Is(store.Save(ctx, nil), xerrors.ErrInvalidModel))
	assert.True(t, errors.Is(store.Save(ctx, &Artifact{Name: "a/b"}), xerrors.ErrInvalidModel))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600))
	_, err = store.Load(ctx, "broken")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidModel))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"name":"bad","model":{"config":{"kernel":{"type":"linear"}},"weights":[1]}}`), 0o600))
	_, err = store.Load(ctx, "bad")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidModel))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Load(cancelled, "missing")
	assert.ErrorIs(t, err, context.Canceled)
}

func mustXErr(t *testing.T, err error) *xerrors.Error {
	t.Helper()
	e, ok := xerrors.FromError(err)
	require.True(t, ok)
	return e
}

func TestNewPicksDriver(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.ModelConfig{Store: "file", Dir: t.TempDir()}, config.MinioConfig{})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = New(ctx, config.ModelConfig{Store: "minio", Prefix: "models"}, config.MinioConfig{Endpoint: "localhost:9000", BucketName: "svm"})
	require.NoError(t, err)
	assert.IsType(t, &MinioStore{}, s)

	_, err = New(ctx, config.ModelConfig{Store: "minio"}, config.MinioConfig{})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidConfig))

	_, err = New(ctx, config.ModelConfig{Store: "s3"}, config.MinioConfig{})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidConfig))
}

func TestMinioStoreLoadMissingObject(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
	}))
	defer srv.Close()

	store, err := NewMinioStore(context.Background(), config.MinioConfig{
		Endpoint:   strings.TrimPrefix(srv.URL, "http://"),
		BucketName: "svm",
		Region:     "us-east-1",
	}, "models")
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "absent")
	assert.True(t, errors.Is(err, xerrors.ErrModelNotFound), "got %v", err)
	assert.Equal(t, "/svm/models/absent.json", requested)
}

func TestMinioStoreUpdateConfig(t *testing.T) {
	store, err := NewMinioStore(context.Background(), config.MinioConfig{Endpoint: "localhost:9000", BucketName: "a"}, "")
	require.NoError(t, err)

	require.NoError(t, store.UpdateConfig(config.MinioConfig{Endpoint: "localhost:9001", BucketName: "b"}))
	_, bucket := store.snapshot()
	assert.Equal(t, "b", bucket)

	assert.Error(t, store.UpdateConfig(config.MinioConfig{}))
	_, bucket = store.snapshot()
	assert.Equal(t, "b", bucket, "failed update keeps the previous client")
}
