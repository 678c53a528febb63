package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

const (
	minioUsername = "admin"
	minioPassword = "password"
)

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	minioContainer, err := minio.Run(
		ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")

	t.Cleanup(func() {
		err := minioContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate MinIO container")
	})

	connStr, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO connection string")

	return "http://" + connStr
}

func TestS3Provider_CheckpointRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping minio test in short mode")
	}

	ctx := context.Background()
	endpoint := setupMinioContainer(t, ctx)

	provider, err := NewS3Provider(S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)

	src := writeCheckpoint(t)
	require.NoError(t, UploadCheckpoint(ctx, provider, "checkpoints", "run-1", src))
	// creating the bucket again is a no-op
	require.NoError(t, provider.CreateBucket(ctx, "checkpoints"))

	dest := filepath.Join(t.TempDir(), "checkpoint")
	require.NoError(t, DownloadCheckpoint(ctx, provider, "checkpoints", "run-1", dest))

	data, err := os.ReadFile(filepath.Join(dest, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"id2label": {"0": "English"}}`, string(data))

	data, err = os.ReadFile(filepath.Join(dest, "extra", "tokenizer.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
