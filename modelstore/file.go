package modelstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// FileStore 把产物保存为 dir/<name>.json。
type FileStore struct {
	dir string
}

// NewFileStore 创建本地目录存储，目录不存在时自动创建。
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.WrapInternal(err, "create model dir "+dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir 返回存储目录。
func (s *FileStore) Dir() string {
	return s.dir
}

// Save 先写临时文件再重命名，读者不会看到写了一半的产物。
func (s *FileStore) Save(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(a)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+a.Name+"-*.tmp")
	if err != nil {
		return xerrors.WrapInternal(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return xerrors.WrapInternal(err, "write model "+a.Name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return xerrors.WrapInternal(err, "sync model "+a.Name)
	}
	if err := tmp.Close(); err != nil {
		return xerrors.WrapInternal(err, "close model "+a.Name)
	}
	if err := os.Rename(tmpName, s.path(a.Name)); err != nil {
		return xerrors.WrapInternal(err, "rename model "+a.Name)
	}
	return nil
}

// Load 读取并校验产物。
func (s *FileStore) Load(ctx context.Context, name string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, xerrors.ErrModelNotFound.Derive("model %s not found in %s", name, s.dir)
	}
	if err != nil {
		return nil, xerrors.WrapInternal(err, "read model "+name)
	}
	return decode(name, data)
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
