package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// UploadCheckpoint copies a finished checkpoint directory to bucket/prefix,
// creating the bucket if needed.
func UploadCheckpoint(ctx context.Context, p Provider, bucket, prefix, src string) error {
	if err := p.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("error creating checkpoint bucket: %w", err)
	}

	if err := p.UploadDir(ctx, bucket, prefix, src); err != nil {
		return fmt.Errorf("error uploading checkpoint: %w", err)
	}

	slog.Info("uploaded checkpoint", "src", src, "bucket", bucket, "prefix", prefix)
	return nil
}

// DownloadCheckpoint fetches bucket/prefix into dest, replacing any previous
// copy. It fails if the prefix holds no objects.
func DownloadCheckpoint(ctx context.Context, p Provider, bucket, prefix, dest string) error {
	objects, err := p.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return fmt.Errorf("error listing checkpoint objects: %w", err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("no checkpoint objects found at %s/%s", bucket, prefix)
	}

	if err := p.DownloadDir(ctx, bucket, prefix, dest, true); err != nil {
		return fmt.Errorf("error downloading checkpoint: %w", err)
	}

	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("checkpoint download did not produce %s: %w", dest, err)
	}

	slog.Info("downloaded checkpoint", "bucket", bucket, "prefix", prefix, "dest", dest, "objects", len(objects))
	return nil
}
