package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func CreateRun(ctx context.Context, txn *gorm.DB, run *TrainingRun) error {
	if run.Id == uuid.Nil {
		run.Id = uuid.New()
	}
	if run.Status == "" {
		run.Status = RunQueued
	}
	if run.CreationTime.IsZero() {
		run.CreationTime = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("error creating training run: %w", err)
	}
	return nil
}

func UpdateRunStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == RunCompleted || status == RunFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&TrainingRun{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating training run status", "run_id", runId, "status", status, "error", err)
		return err
	}
	return nil
}

// UpdateRunSplit records how many examples ended up on each side of the
// train/validation split.
func UpdateRunSplit(ctx context.Context, txn *gorm.DB, runId uuid.UUID, train, validation, dropped int) error {
	updates := map[string]any{
		"train_examples":      train,
		"validation_examples": validation,
		"dropped_rows":        dropped,
	}
	if err := txn.WithContext(ctx).Model(&TrainingRun{Id: runId}).Updates(updates).Error; err != nil {
		return fmt.Errorf("error updating training run split: %w", err)
	}
	return nil
}

func FailRun(ctx context.Context, txn *gorm.DB, runId uuid.UUID, cause error) error {
	updates := map[string]any{
		"status":          RunFailed,
		"error":           sql.NullString{String: cause.Error(), Valid: true},
		"completion_time": time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Model(&TrainingRun{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error marking training run failed", "run_id", runId, "error", err)
		return err
	}
	return nil
}

// CompleteRun stores the label vocabulary of a finished run and marks it
// completed in one transaction.
func CompleteRun(ctx context.Context, db *gorm.DB, runId uuid.UUID, labels []string, checkpointDir, checkpointUri string) error {
	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		rows := make([]RunLabel, len(labels))
		for i, label := range labels {
			rows[i] = RunLabel{RunId: runId, Position: i, Label: label}
		}
		if len(rows) > 0 {
			if err := txn.Create(&rows).Error; err != nil {
				return fmt.Errorf("error saving run labels: %w", err)
			}
		}

		updates := map[string]any{
			"status":          RunCompleted,
			"checkpoint_dir":  checkpointDir,
			"checkpoint_uri":  sql.NullString{String: checkpointUri, Valid: checkpointUri != ""},
			"completion_time": time.Now().UTC(),
		}
		if err := txn.Model(&TrainingRun{Id: runId}).Updates(updates).Error; err != nil {
			return fmt.Errorf("error completing training run: %w", err)
		}
		return nil
	})
}

var ErrRunNotFound = errors.New("training run not found")

func GetRun(ctx context.Context, txn *gorm.DB, runId uuid.UUID) (*TrainingRun, error) {
	var run TrainingRun
	err := txn.WithContext(ctx).
		Preload("Labels", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", runId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting training run %s: %w", runId, err)
	}
	return &run, nil
}

func (r *TrainingRun) LabelNames() []string {
	names := make([]string, len(r.Labels))
	for i, label := range r.Labels {
		names[i] = label.Label
	}
	return names
}

// ListRuns returns runs newest first, optionally filtered by status.
func ListRuns(ctx context.Context, txn *gorm.DB, status string, limit int) ([]TrainingRun, error) {
	query := txn.WithContext(ctx).
		Preload("Labels", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("creation_time DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []TrainingRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("error listing training runs: %w", err)
	}
	return runs, nil
}
