// Package filesvc stores uploaded files on disk or in Backblaze B2.
package filesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// DiskStorage writes files under `dir`; they are served from `baseURL`.
type DiskStorage struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*DiskStorage)(nil)

func NewDiskStorage(dir, baseURL string) *DiskStorage {
	return &DiskStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *DiskStorage) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	key = path.Clean("/" + key)[1:]
	if key == "" {
		return "", errors.New("empty file key")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}
	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.baseURL + "/" + key, nil
}
