// Package modelstore 负责持久化训练产物：模型快照、标准化参数与评估分数。
// 产物以 JSON 编码，可以存放在本地目录或 MinIO/S3 兼容的对象存储中。
package modelstore

import (
	"context"
	"encoding/json"
	"path"
	"regexp"
	"time"

	"github.com/wyfcoding/kernelsvm/algorithm"
	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/dataset"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

// Artifact 是一次训练的完整产物。
type Artifact struct {
	Name          string                  `json:"name"`
	CreatedAt     time.Time               `json:"created_at"`
	Model         algorithm.Snapshot      `json:"model"`
	Scaler        *dataset.StandardScaler `json:"scaler,omitempty"` // 训练时未做标准化则为 nil。
	TrainAccuracy float64                 `json:"train_accuracy"`
	TestAccuracy  float64                 `json:"test_accuracy"`
	TestSamples   int                     `json:"test_samples"`
}

// SVM 从快照恢复可用于预测的模型。
func (a *Artifact) SVM() (*algorithm.SVM, error) {
	return algorithm.Restore(a.Model)
}

// Store 定义了模型产物的存取接口，支持多驱动扩展。
type Store interface {
	Save(ctx context.Context, a *Artifact) error
	// Load 读取指定名称的产物，不存在时返回 ErrModelNotFound。
	Load(ctx context.Context, name string) (*Artifact, error)
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return xerrors.ErrInvalidModel.Derive("invalid model name %q", name)
	}
	return nil
}

func objectName(prefix, name string) string {
	return path.Join(prefix, name+".json")
}

func encode(a *Artifact) ([]byte, error) {
	if a == nil {
		return nil, xerrors.ErrInvalidModel.Derive("nil artifact")
	}
	if err := checkName(a.Name); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, xerrors.WrapInternal(err, "encode model artifact")
	}
	return data, nil
}

func decode(name string, data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, xerrors.ErrInvalidModel.Derive("model %s: corrupt artifact: %v", name, err)
	}
	if _, err := algorithm.Restore(a.Model); err != nil {
		return nil, xerrors.ErrInvalidModel.Derive("model %s: %v", name, err)
	}
	return &a, nil
}

// New 按配置选择存储驱动。
func New(ctx context.Context, model config.ModelConfig, minioCfg config.MinioConfig) (Store, error) {
	switch model.Store {
	case "", "file":
		return NewFileStore(model.Dir)
	case "minio":
		return NewMinioStore(ctx, minioCfg, model.Prefix)
	default:
		return nil, xerrors.ErrInvalidConfig.Derive("unknown model store %q", model.Store)
	}
}
