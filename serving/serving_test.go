package serving

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/dataset"
	"github.com/wyfcoding/kernelsvm/metrics"
	"github.com/wyfcoding/kernelsvm/middleware"
	"github.com/wyfcoding/kernelsvm/modelstore"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func clusters() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := range 10 {
		a := 2 * math.Pi * float64(i) / 10
		dx, dy := 0.3*math.Cos(a), 0.3*math.Sin(a)
		X = append(X, []float64{-2 + dx, -2 + dy}, []float64{2 + dx, 2 + dy})
		y = append(y, 0, 1)
	}
	return X, y
}

func testArtifact(t *testing.T) *modelstore.Artifact {
	t.Helper()
	X, y := clusters()

	var scaler dataset.StandardScaler
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	svm, err := algorithm.NewSVM(algorithm.Config{LearningRate: 0.01, Lambda: 0.01, Epochs: 200, Kernel: algorithm.LinearKernel()})
	require.NoError(t, err)
	require.NoError(t, svm.Train(scaled, y))
	snap, err := svm.Snapshot()
	require.NoError(t, err)

	return &modelstore.Artifact{
		Name:          "clusters",
		CreatedAt:     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Model:         snap,
		Scaler:        &scaler,
		TrainAccuracy: 1,
		TestAccuracy:  1,
		TestSamples:   4,
	}
}

type fixture struct {
	engine  *gin.Engine
	svc     *Service
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, cfg config.ServerConfig, withModel bool) *fixture {
	t.Helper()
	m := metrics.NewMetrics("svm-test")
	svc := NewService(m, cfg.MaxBatch)
	if withModel {
		require.NoError(t, svc.SetArtifact(testArtifact(t)))
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	engine := NewRouter(svc, m, logger, cfg, config.MetricsConfig{Enabled: true, Path: "/metrics"})
	return &fixture{engine: engine, svc: svc, metrics: m}
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{Name: "svm-test", Addr: ":0", MaxBodyBytes: 1 << 20, MaxBatch: 100}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), false)
	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestPredict(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), true)

	rec := f.do(http.MethodPost, "/v1/predict", `{"samples":[[-3,-3],[3,3],[-2,-1.5]]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "success", env.Msg)

	var res PredictResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []int{-1, 1, -1}, res.Predictions)
	require.Len(t, res.Scores, 3)
	assert.Less(t, res.Scores[0], 0.0)
	assert.Greater(t, res.Scores[1], 0.0)
}

func TestPredictStandardizedSkipsScaler(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), true)
	a := testArtifact(t)
	scaled, err := a.Scaler.Transform([][]float64{{3, 3}})
	require.NoError(t, err)

	raw, err := json.Marshal(PredictRequest{Samples: [][]float64{{3, 3}}})
	require.NoError(t, err)
	pre, err := json.Marshal(PredictRequest{Samples: scaled, Standardized: true})
	require.NoError(t, err)

	var a1, a2 PredictResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, f.do(http.MethodPost, "/v1/predict", string(raw))).Data, &a1))
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, f.do(http.MethodPost, "/v1/predict", string(pre))).Data, &a2))
	assert.InDelta(t, a1.Scores[0], a2.Scores[0], 1e-12)
}

func TestPredictErrors(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.MaxBatch = 2
	f := newFixture(t, cfg, true)

	cases := []struct {
		name   string
		body   string
		status int
		code   int
	}{
		{"empty", `{"samples":[]}`, http.StatusBadRequest, 400001},
		{"width", `{"samples":[[1,2,3]]}`, http.StatusBadRequest, 400007},
		{"malformed", `{"samples":`, http.StatusBadRequest, 400022},
		{"batch", `{"samples":[[1,1],[2,2],[3,3]]}`, http.StatusBadRequest, 400022},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/v1/predict", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeEnvelope(t, rec).Code)
		})
	}
}

func TestPredictBodyTooLarge(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.MaxBodyBytes = 16
	f := newFixture(t, cfg, true)

	body := `{"samples":[[1,1],[2,2],[3,3]]}`
	rec := f.do(http.MethodPost, "/v1/predict", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, xerrors.ErrBodyTooLarge.Code, decodeEnvelope(t, rec).Code)

	// 未声明长度的请求在读取时被截断。
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", io.MultiReader(strings.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, xerrors.ErrBodyTooLarge.Code, decodeEnvelope(t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	f := newFixture(t, cfg, true)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/model", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/v1/model", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
}

func TestModelInfo(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), true)

	rec := f.do(http.MethodGet, "/v1/model", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info ModelInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &info))
	assert.Equal(t, "clusters", info.Name)
	assert.Equal(t, algorithm.LinearKernel(), info.Kernel)
	assert.Equal(t, 2, info.Features)
	assert.Equal(t, 2, info.Weights)
	assert.Equal(t, 200, info.Epochs)
	assert.True(t, info.Standardized)
	require.NotNil(t, info.FinalLoss)
}

func TestNoModelLoaded(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), false)

	rec := f.do(http.MethodGet, "/v1/model", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 409001, decodeEnvelope(t, rec).Code)

	rec = f.do(http.MethodPost, "/v1/predict", `{"samples":[[1,1]]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), true)
	f.do(http.MethodPost, "/v1/predict", `{"samples":[[3,3],[-3,-3]]}`)
	f.do(http.MethodGet, "/nowhere", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `svm_predictions_total{class="positive",kernel="linear"} 1`)
	assert.Contains(t, body, `svm_predictions_total{class="negative",kernel="linear"} 1`)
	assert.Contains(t, body, `http_server_requests_total{method="POST",path="/v1/predict",status="200"} 1`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.Contains(t, body, `svm_model_accuracy{kernel="linear",split="test"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
}

func TestSwapModel(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), true)

	a := testArtifact(t)
	a.Name = "clusters-v2"
	require.NoError(t, f.svc.SetArtifact(a))

	info, err := f.svc.Info()
	require.NoError(t, err)
	assert.Equal(t, "clusters-v2", info.Name)

	bad := testArtifact(t)
	bad.Model.Weights = nil
	assert.Error(t, f.svc.SetArtifact(bad))
	info, err = f.svc.Info()
	require.NoError(t, err)
	assert.Equal(t, "clusters-v2", info.Name, "invalid artifact must not replace the live model")
}

func TestRecoveryReturnsJSON(t *testing.T) {
	f := newFixture(t, defaultServerConfig(), false)
	f.engine.GET("/panic", func(*gin.Context) { panic("boom") })

	rec := f.do(http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("Internal Server Error")))
}
