package filesvc

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// B2Storage uploads files to a Backblaze B2 bucket.
type B2Storage struct {
	bucket *b2.Bucket
}

var _ core.FileStorage = (*B2Storage)(nil)

func NewB2Storage(ctx context.Context, conf *core.Config) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, conf.Storage.B2AccountID, conf.Storage.B2AppKey)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to b2")
	}
	bucket, err := client.Bucket(ctx, conf.Storage.B2BucketName)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %s", conf.Storage.B2BucketName)
	}
	return &B2Storage{bucket: bucket}, nil
}

func (s *B2Storage) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "uploading %s", key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "uploading %s", key)
	}
	return obj.URL(), nil
}

// New returns the storage backend selected in the config.
func New(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	if conf.Storage.Backend == "b2" {
		return NewB2Storage(ctx, conf)
	}
	return NewDiskStorage(conf.Storage.MediaDir, conf.Storage.MediaURL), nil
}
