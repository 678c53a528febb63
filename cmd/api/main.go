package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"langid-backend/cmd"
	"langid-backend/internal/api"
	"langid-backend/internal/core"
	"langid-backend/internal/database"
	"langid-backend/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"5000"`

	CheckpointDir     string `env:"CHECKPOINT_DIR" envDefault:"../model/checkpoint"`
	OnnxRuntimeDylib  string `env:"ONNX_RUNTIME_DYLIB"`
	MaxSequenceLength int    `env:"MAX_SEQUENCE_LENGTH" envDefault:"128"`
	BaseTokenizer     string `env:"BASE_TOKENIZER" envDefault:"xlm-roberta-base"`

	// When set, the checkpoint is fetched from the object store into
	// CHECKPOINT_DIR before loading.
	CheckpointBucket string `env:"CHECKPOINT_BUCKET"`
	CheckpointPrefix string `env:"CHECKPOINT_PREFIX"`
	Storage          cmd.StorageConfig

	// Optional training-run registry exposed under /runs.
	DatabaseURL string `env:"DATABASE_URL"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

func fetchCheckpoint(cfg Config, dir string) {
	if cfg.CheckpointBucket == "" {
		return
	}

	provider, err := cmd.CreateStorageProvider(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to create storage client: %v", err)
	}
	if provider == nil {
		log.Fatalf("CHECKPOINT_BUCKET is set but no object store is configured")
	}

	if err := storage.DownloadCheckpoint(context.Background(), provider, cfg.CheckpointBucket, cfg.CheckpointPrefix, dir); err != nil {
		log.Fatalf("failed to download checkpoint: %v", err)
	}
}

func createServer(cfg Config, predictor api.Predictor, db *gorm.DB) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	api.NewPredictionService(predictor).AddRoutes(r)
	if db != nil {
		api.NewRunService(db).AddRoutes(r)
	}

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	checkpointDir, err := cmd.ResolveFromExecutable(cfg.CheckpointDir)
	if err != nil {
		log.Fatalf("error resolving checkpoint dir: %v", err)
	}

	fetchCheckpoint(cfg, checkpointDir)

	if err := core.InitOnnxRuntime(cfg.OnnxRuntimeDylib); err != nil {
		log.Fatalf("could not init ONNX Runtime: %v", err)
	}
	defer func() {
		if err := core.DestroyOnnxRuntime(); err != nil {
			slog.Error("error destroying onnx env", "error", err)
		}
	}()

	slog.Info("loading checkpoint", "dir", checkpointDir, "max_sequence_length", cfg.MaxSequenceLength)

	predictor, err := core.LoadPredictor(checkpointDir, core.OnnxOptions{
		MaxSequenceLength: cfg.MaxSequenceLength,
		BaseTokenizer:     cfg.BaseTokenizer,
	})
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	defer predictor.Release()

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
	}

	server := createServer(cfg, predictor, db)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", server.Addr, "labels", len(predictor.Labels()))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("could not listen on %s: %v", server.Addr, err)
	}

	slog.Info("server stopped")
}
