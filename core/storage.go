package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files (e.g. submission attachments) and returns their public URL.
type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader) (url string, err error)
}
