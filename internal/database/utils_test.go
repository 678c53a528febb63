package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"langid-backend/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	return db
}

func newRun() *database.TrainingRun {
	return &database.TrainingRun{
		DatasetPath:     "dataset.csv",
		TextColumn:      "Text",
		LabelColumn:     "language",
		BaseModel:       "xlm-roberta-base",
		Hyperparameters: datatypes.JSON(`{"epochs": 3}`),
	}
}

func TestCompleteRun(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	run := newRun()
	require.NoError(t, database.CreateRun(ctx, db, run))
	assert.NotEqual(t, uuid.Nil, run.Id)
	assert.Equal(t, database.RunQueued, run.Status)

	require.NoError(t, database.UpdateRunStatus(ctx, db, run.Id, database.RunTraining))
	require.NoError(t, database.UpdateRunSplit(ctx, db, run.Id, 8, 2, 1))
	require.NoError(t, database.CompleteRun(ctx, db, run.Id, []string{"Arabic", "English", "French"}, "/tmp/ckpt", "s3://checkpoints/run"))

	loaded, err := database.GetRun(ctx, db, run.Id)
	require.NoError(t, err)
	assert.Equal(t, database.RunCompleted, loaded.Status)
	assert.Equal(t, []string{"Arabic", "English", "French"}, loaded.LabelNames())
	assert.Equal(t, 8, loaded.TrainExamples)
	assert.Equal(t, 2, loaded.ValidationExamples)
	assert.Equal(t, 1, loaded.DroppedRows)
	assert.Equal(t, "/tmp/ckpt", loaded.CheckpointDir)
	assert.Equal(t, "s3://checkpoints/run", loaded.CheckpointUri.String)
	assert.True(t, loaded.CompletionTime.Valid)
	assert.JSONEq(t, `{"epochs": 3}`, string(loaded.Hyperparameters))
}

func TestFailRun(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	run := newRun()
	require.NoError(t, database.CreateRun(ctx, db, run))
	require.NoError(t, database.FailRun(ctx, db, run.Id, errors.New("dataset missing column")))

	loaded, err := database.GetRun(ctx, db, run.Id)
	require.NoError(t, err)
	assert.Equal(t, database.RunFailed, loaded.Status)
	assert.Equal(t, "dataset missing column", loaded.Error.String)
	assert.Empty(t, loaded.Labels)
}

func TestGetRunNotFound(t *testing.T) {
	db := createDB(t)

	_, err := database.GetRun(context.Background(), db, uuid.New())
	assert.ErrorIs(t, err, database.ErrRunNotFound)
}

func TestNewDatabaseSqliteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry", "runs.db")

	db, err := database.NewDatabase(path)
	require.NoError(t, err)

	run := newRun()
	require.NoError(t, database.CreateRun(context.Background(), db, run))

	// reopening runs the migrator against an existing schema
	db2, err := database.NewDatabase(path)
	require.NoError(t, err)
	_, err = database.GetRun(context.Background(), db2, run.Id)
	require.NoError(t, err)
}
