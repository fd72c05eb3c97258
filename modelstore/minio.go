package modelstore

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wyfcoding/kernelsvm/config"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

const (
	codeNoSuchKey    = "NoSuchKey"
	codeNoSuchBucket = "NoSuchBucket"
)

// MinioStore 把产物保存为对象 <prefix>/<name>.json，对接 MinIO 或 S3 兼容存储。
type MinioStore struct {
	mu     sync.RWMutex
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore 构造对象存储驱动。构造时不访问网络，存储桶在首次写入时按需创建。
func NewMinioStore(_ context.Context, cfg config.MinioConfig, prefix string) (*MinioStore, error) {
	client, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("minio model store initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName, "prefix", prefix)

	return &MinioStore{
		client: client,
		bucket: cfg.BucketName,
		prefix: prefix,
	}, nil
}

func (s *MinioStore) snapshot() (*minio.Client, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client, s.bucket
}

// Save 上传产物，存储桶不存在时创建后重试一次。
func (s *MinioStore) Save(ctx context.Context, a *Artifact) error {
	data, err := encode(a)
	if err != nil {
		return err
	}
	client, bucket := s.snapshot()
	object := objectName(s.prefix, a.Name)

	start := time.Now()
	err = s.put(ctx, client, bucket, object, data)
	if err != nil && minio.ToErrorResponse(err).Code == codeNoSuchBucket {
		if mkErr := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); mkErr != nil {
			return xerrors.WrapInternal(mkErr, "create bucket "+bucket)
		}
		err = s.put(ctx, client, bucket, object, data)
	}
	if err != nil {
		slog.Error("minio upload failed", "object", object, "error", err)
		return xerrors.WrapInternal(err, "upload model "+a.Name)
	}
	slog.Debug("minio upload successful", "object", object, "duration", time.Since(start))
	return nil
}

func (s *MinioStore) put(ctx context.Context, client *minio.Client, bucket, object string, data []byte) error {
	_, err := client.PutObject(ctx, bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// Load 下载并校验产物，对象不存在时返回 ErrModelNotFound。
func (s *MinioStore) Load(ctx context.Context, name string) (*Artifact, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	client, bucket := s.snapshot()
	object := objectName(s.prefix, name)

	obj, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err == nil {
		defer obj.Close()
		var data []byte
		data, err = io.ReadAll(obj)
		if err == nil {
			return decode(name, data)
		}
	}
	switch minio.ToErrorResponse(err).Code {
	case codeNoSuchKey, codeNoSuchBucket:
		return nil, xerrors.ErrModelNotFound.Derive("model %s not found in bucket %s", name, bucket)
	default:
		return nil, xerrors.WrapInternal(err, "download model "+name)
	}
}

// UpdateConfig 使用最新配置刷新 MinIO 客户端。
func (s *MinioStore) UpdateConfig(cfg config.MinioConfig) error {
	client, err := newMinioClient(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.client = client
	s.bucket = cfg.BucketName
	s.mu.Unlock()

	slog.Info("minio model store updated", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)
	return nil
}

// RegisterReloadHook 注册 MinIO 客户端热更新回调。
func RegisterReloadHook(s *MinioStore) {
	if s == nil {
		return
	}
	config.RegisterReloadHook(func(updated *config.Config) {
		if updated == nil {
			return
		}
		if err := s.UpdateConfig(updated.Minio); err != nil {
			slog.Error("minio model store reload failed", "error", err)
		}
	})
}

func newMinioClient(cfg config.MinioConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, xerrors.ErrInvalidConfig.Derive("minio endpoint and bucket_name are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "create minio client")
	}
	return client, nil
}
