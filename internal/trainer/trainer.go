package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"langid-backend/internal/core"
	"langid-backend/internal/database"
	"langid-backend/internal/dataset"
	"langid-backend/internal/labels"
	"langid-backend/internal/storage"
	"langid-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultBaseModel         = "xlm-roberta-base"
	DefaultMaxSequenceLength = 512

	// SnapshotFile holds the label metadata handed to the fitter.
	SnapshotFile = "config.updated.json"
)

type Config struct {
	DatasetPath string
	TextColumn  string
	LabelColumn string
	TrainRatio  float64

	BaseModel         string
	TokenizerPath     string
	MaxSequenceLength int
	// nil means core.DefaultPadTokenId; 0 is a valid pad id (BERT family).
	PadTokenId *int64

	OutputDir string
	WorkDir   string

	Hyperparameters api.Hyperparameters

	UploadBucket string
	UploadPrefix string
}

type Result struct {
	RunId              uuid.UUID
	CheckpointDir      string
	CheckpointUri      string
	Vocabulary         *labels.Vocabulary
	TrainExamples      int
	ValidationExamples int
}

type TokenizerLoader func(path string, maxLength int, padId int64) (Encoder, error)

// LoadTokenizer opens a tokenizer.json as an Encoder.
func LoadTokenizer(path string, maxLength int, padId int64) (Encoder, error) {
	tk, err := core.LoadTokenizerFile(path)
	if err != nil {
		return nil, err
	}
	return core.NewTextEncoder(tk, maxLength, padId), nil
}

type Trainer struct {
	cfg    Config
	fitter Fitter
	padId  int64

	db      *gorm.DB
	storage storage.Provider

	loadTokenizer TokenizerLoader
	progress      io.Writer
}

type Option func(*Trainer)

// WithRegistry records every run in the training-run registry.
func WithRegistry(db *gorm.DB) Option {
	return func(t *Trainer) { t.db = db }
}

// WithStorage uploads finished checkpoints to the given provider when
// Config.UploadBucket is set.
func WithStorage(p storage.Provider) Option {
	return func(t *Trainer) { t.storage = p }
}

func WithTokenizerLoader(loader TokenizerLoader) Option {
	return func(t *Trainer) { t.loadTokenizer = loader }
}

func WithProgressWriter(w io.Writer) Option {
	return func(t *Trainer) { t.progress = w }
}

func NewTrainer(cfg Config, fitter Fitter, opts ...Option) *Trainer {
	if cfg.TextColumn == "" {
		cfg.TextColumn = dataset.DefaultTextColumn
	}
	if cfg.LabelColumn == "" {
		cfg.LabelColumn = dataset.DefaultLabelColumn
	}
	if cfg.TrainRatio == 0 {
		cfg.TrainRatio = dataset.DefaultTrainRatio
	}
	if cfg.BaseModel == "" {
		cfg.BaseModel = DefaultBaseModel
	}
	if cfg.MaxSequenceLength <= 0 {
		cfg.MaxSequenceLength = DefaultMaxSequenceLength
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Clean(cfg.OutputDir) + "-work"
	}

	padId := int64(core.DefaultPadTokenId)
	if cfg.PadTokenId != nil {
		padId = *cfg.PadTokenId
	}

	t := &Trainer{
		cfg:           cfg,
		fitter:        fitter,
		padId:         padId,
		loadTokenizer: LoadTokenizer,
		progress:      os.Stderr,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run trains one checkpoint end to end. Dataset problems are reported before
// the tokenizer is loaded or the fitter is started.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	runId, err := t.createRun(ctx)
	if err != nil {
		return nil, err
	}

	result, err := t.run(ctx, runId)
	if err != nil {
		slog.Error("training run failed", "run_id", runId, "error", err)
		if t.db != nil {
			if ferr := database.FailRun(context.WithoutCancel(ctx), t.db, runId, err); ferr != nil {
				slog.Error("error recording failed training run", "run_id", runId, "error", ferr)
			}
		}
		return nil, err
	}
	return result, nil
}

func (t *Trainer) run(ctx context.Context, runId uuid.UUID) (*Result, error) {
	ds, err := dataset.Load(t.cfg.DatasetPath, t.cfg.TextColumn, t.cfg.LabelColumn)
	if err != nil {
		return nil, err
	}

	vocab, err := labels.BuildFromColumn(t.cfg.LabelColumn, ds.Labels())
	if err != nil {
		return nil, err
	}
	ids, err := vocab.EncodeAll(ds.Labels())
	if err != nil {
		return nil, err
	}
	slog.Info("built label vocabulary", "labels", vocab.Size(), "examples", len(ds.Examples))

	examples := make([]labeledText, len(ds.Examples))
	for i, ex := range ds.Examples {
		examples[i] = labeledText{text: ex.Text, label: ids[i]}
	}

	train, validation, err := dataset.Split(examples, t.cfg.TrainRatio)
	if err != nil {
		return nil, err
	}
	slog.Info("split dataset", "train", len(train), "validation", len(validation), "dropped", ds.Dropped)

	if t.db != nil {
		if err := database.UpdateRunSplit(ctx, t.db, runId, len(train), len(validation), ds.Dropped); err != nil {
			return nil, err
		}
		if err := database.UpdateRunStatus(ctx, t.db, runId, database.RunTraining); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(t.cfg.WorkDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating work dir %s: %w", t.cfg.WorkDir, err)
	}

	job := api.FitJob{
		BaseModel:       t.cfg.BaseModel,
		NumLabels:       vocab.Size(),
		Id2Label:        vocab.Id2Label(),
		Label2Id:        vocab.Label2Id(),
		TrainData:       filepath.Join(t.cfg.WorkDir, TrainShard),
		ValidationData:  filepath.Join(t.cfg.WorkDir, ValidationShard),
		OutputDir:       t.cfg.OutputDir,
		WorkDir:         t.cfg.WorkDir,
		Hyperparameters: t.cfg.Hyperparameters,
	}

	if err := vocab.WriteConfigFile(filepath.Join(t.cfg.WorkDir, SnapshotFile)); err != nil {
		return nil, fmt.Errorf("error writing label snapshot: %w", err)
	}

	if err := t.writeShards(train, validation, job); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Info("fitting model", "base_model", job.BaseModel, "num_labels", job.NumLabels, "output_dir", job.OutputDir)
	if err := t.fitter.Fit(ctx, job); err != nil {
		return nil, fmt.Errorf("error fitting model: %w", err)
	}

	if err := t.finalizeCheckpoint(vocab); err != nil {
		return nil, err
	}

	uri, err := t.upload(ctx, runId)
	if err != nil {
		return nil, err
	}

	if t.db != nil {
		if err := database.CompleteRun(ctx, t.db, runId, vocab.Labels(), t.cfg.OutputDir, uri); err != nil {
			return nil, err
		}
	}

	slog.Info("training run completed", "run_id", runId, "checkpoint", t.cfg.OutputDir, "uri", uri)

	return &Result{
		RunId:              runId,
		CheckpointDir:      t.cfg.OutputDir,
		CheckpointUri:      uri,
		Vocabulary:         vocab,
		TrainExamples:      len(train),
		ValidationExamples: len(validation),
	}, nil
}

func (t *Trainer) createRun(ctx context.Context) (uuid.UUID, error) {
	runId := uuid.New()
	if t.db == nil {
		return runId, nil
	}

	hyperparams, err := json.Marshal(t.cfg.Hyperparameters)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error encoding hyperparameters: %w", err)
	}

	run := database.TrainingRun{
		Id:              runId,
		DatasetPath:     t.cfg.DatasetPath,
		TextColumn:      t.cfg.TextColumn,
		LabelColumn:     t.cfg.LabelColumn,
		BaseModel:       t.cfg.BaseModel,
		Hyperparameters: datatypes.JSON(hyperparams),
		CheckpointDir:   t.cfg.OutputDir,
	}
	if err := database.CreateRun(ctx, t.db, &run); err != nil {
		return uuid.Nil, err
	}
	return runId, nil
}

func (t *Trainer) writeShards(train, validation []labeledText, job api.FitJob) error {
	if t.cfg.TokenizerPath == "" {
		return fmt.Errorf("no tokenizer configured")
	}

	encoder, err := t.loadTokenizer(t.cfg.TokenizerPath, t.cfg.MaxSequenceLength, t.padId)
	if err != nil {
		return fmt.Errorf("error loading tokenizer: %w", err)
	}
	defer encoder.Close()

	// padding spans the whole dataset, so both shards share one length
	encoded, err := encodeAll(encoder, append(append([]labeledText{}, train...), validation...), t.padId, t.progress)
	if err != nil {
		return err
	}

	if err := writeShard(job.TrainData, encoded[:len(train)]); err != nil {
		return err
	}
	return writeShard(job.ValidationData, encoded[len(train):])
}

// finalizeCheckpoint makes the vocabulary authoritative in the checkpoint
// config and stores the tokenizer the shards were encoded with. Fitters that
// only save checkpoint-<step> subdirectories get the same treatment in every
// step, so whichever step the service resolves is servable.
func (t *Trainer) finalizeCheckpoint(vocab *labels.Vocabulary) error {
	steps, err := core.StepCheckpointDirs(t.cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("error listing step checkpoints: %w", err)
	}

	for _, dir := range append([]string{t.cfg.OutputDir}, steps...) {
		if err := t.finalizeDir(dir, vocab); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) finalizeDir(dir string, vocab *labels.Vocabulary) error {
	if err := vocab.WriteConfig(dir); err != nil {
		return fmt.Errorf("error writing checkpoint labels in %s: %w", dir, err)
	}

	reloaded, err := labels.ReadConfig(dir)
	if err != nil {
		return fmt.Errorf("error verifying checkpoint labels in %s: %w", dir, err)
	}
	if !reloaded.Equal(vocab) {
		return fmt.Errorf("checkpoint label mapping in %s does not match the training vocabulary", dir)
	}

	if err := copyFile(t.cfg.TokenizerPath, filepath.Join(dir, core.TokenizerFile)); err != nil {
		return fmt.Errorf("error storing tokenizer in %s: %w", dir, err)
	}
	return nil
}

func (t *Trainer) upload(ctx context.Context, runId uuid.UUID) (string, error) {
	if t.storage == nil || t.cfg.UploadBucket == "" {
		return "", nil
	}

	prefix := t.cfg.UploadPrefix
	if prefix == "" {
		prefix = runId.String()
	}

	if err := storage.UploadCheckpoint(ctx, t.storage, t.cfg.UploadBucket, prefix, t.cfg.OutputDir); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", t.cfg.UploadBucket, prefix), nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
