package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"langid-backend/cmd"
	"langid-backend/internal/database"
	"langid-backend/internal/trainer"
	"langid-backend/pkg/api"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DatasetPath string  `env:"DATASET_PATH,notEmpty,required"`
	TextColumn  string  `env:"TEXT_COLUMN" envDefault:"Text"`
	LabelColumn string  `env:"LABEL_COLUMN" envDefault:"language"`
	TrainRatio  float64 `env:"TRAIN_RATIO" envDefault:"0.8"`

	BaseModel         string `env:"BASE_MODEL" envDefault:"xlm-roberta-base"`
	TokenizerPath     string `env:"TOKENIZER_PATH,notEmpty,required"`
	MaxSequenceLength int    `env:"MAX_SEQUENCE_LENGTH" envDefault:"512"`
	PadTokenId        int64  `env:"PAD_TOKEN_ID" envDefault:"1"`

	OutputDir string `env:"OUTPUT_DIR" envDefault:"../model/checkpoint"`
	WorkDir   string `env:"WORK_DIR"`

	FitterMode    string   `env:"FITTER_MODE" envDefault:"command"`
	FitterCommand []string `env:"FITTER_COMMAND,notEmpty,required" envSeparator:" "`
	FitterPlugin  string   `env:"FITTER_PLUGIN" envDefault:"./fitter-plugin"`

	Hyperparameters api.Hyperparameters

	DatabaseURL string `env:"DATABASE_URL" envDefault:"./data/runs.db"`

	UploadBucket string `env:"UPLOAD_BUCKET"`
	UploadPrefix string `env:"UPLOAD_PREFIX"`
	Storage      cmd.StorageConfig
}

func createFitter(cfg Config) trainer.Fitter {
	switch trainer.FitterMode(cfg.FitterMode) {
	case trainer.CommandFitterMode:
		return trainer.NewCommandFitter(cfg.FitterCommand)
	case trainer.PluginFitterMode:
		plugin, err := cmd.ResolveFromExecutable(cfg.FitterPlugin)
		if err != nil {
			log.Fatalf("error resolving fitter plugin: %v", err)
		}
		return trainer.NewPluginFitter(plugin, cfg.FitterCommand)
	default:
		log.Fatalf("invalid FITTER_MODE %q, must be 'command' or 'plugin'", cfg.FitterMode)
		return nil
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	outputDir, err := cmd.ResolveFromExecutable(cfg.OutputDir)
	if err != nil {
		log.Fatalf("error resolving output dir: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	opts := []trainer.Option{trainer.WithRegistry(db)}
	if cfg.UploadBucket != "" {
		provider, err := cmd.CreateStorageProvider(cfg.Storage)
		if err != nil {
			log.Fatalf("failed to create storage client: %v", err)
		}
		if provider == nil {
			log.Fatalf("UPLOAD_BUCKET is set but no object store is configured")
		}
		opts = append(opts, trainer.WithStorage(provider))
	}

	t := trainer.NewTrainer(trainer.Config{
		DatasetPath:       cfg.DatasetPath,
		TextColumn:        cfg.TextColumn,
		LabelColumn:       cfg.LabelColumn,
		TrainRatio:        cfg.TrainRatio,
		BaseModel:         cfg.BaseModel,
		TokenizerPath:     cfg.TokenizerPath,
		MaxSequenceLength: cfg.MaxSequenceLength,
		PadTokenId:        &cfg.PadTokenId,
		OutputDir:         outputDir,
		WorkDir:           cfg.WorkDir,
		Hyperparameters:   cfg.Hyperparameters,
		UploadBucket:      cfg.UploadBucket,
		UploadPrefix:      cfg.UploadPrefix,
	}, createFitter(cfg), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting training run", "dataset", cfg.DatasetPath, "base_model", cfg.BaseModel, "output_dir", outputDir)

	result, err := t.Run(ctx)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	slog.Info("training finished", "run_id", result.RunId, "checkpoint", result.CheckpointDir,
		"labels", result.Vocabulary.Size(), "train", result.TrainExamples, "validation", result.ValidationExamples)
}
