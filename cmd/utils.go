package cmd

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"langid-backend/internal/storage"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// StorageConfig selects the object store used for checkpoints. S3 wins when
// an endpoint or credentials are configured, otherwise a local directory is
// used if one is set.
type StorageConfig struct {
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	LocalStorageDir   string `env:"LOCAL_STORAGE_DIR"`
}

// CreateStorageProvider returns nil when no store is configured.
func CreateStorageProvider(cfg StorageConfig) (storage.Provider, error) {
	switch {
	case cfg.S3EndpointURL != "" || cfg.S3AccessKeyID != "":
		slog.Info("using s3 checkpoint store", "endpoint", cfg.S3EndpointURL, "region", cfg.S3Region)
		return storage.NewS3Provider(storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case cfg.LocalStorageDir != "":
		slog.Info("using local checkpoint store", "dir", cfg.LocalStorageDir)
		return storage.NewLocalProvider(cfg.LocalStorageDir)
	default:
		return nil, nil
	}
}

// ResolveFromExecutable makes a relative path relative to the directory of
// the running binary instead of the working directory.
func ResolveFromExecutable(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("error locating executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("error resolving executable path: %w", err)
	}

	return filepath.Join(filepath.Dir(exe), path), nil
}
