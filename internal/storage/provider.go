package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

// Provider stores checkpoint directories under bucket/prefix keys so a
// training run on one machine can be served from another.
type Provider interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)

	DownloadDir(ctx context.Context, bucket, prefix, dest string, overwrite bool) error

	UploadDir(ctx context.Context, bucket, prefix, src string) error
}
