package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunQueued    string = "QUEUED"
	RunTraining  string = "TRAINING"
	RunCompleted string = "COMPLETED"
	RunFailed    string = "FAILED"
)

// TrainingRun records one trainer invocation and where its checkpoint went.
type TrainingRun struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	DatasetPath string `gorm:"not null"`
	TextColumn  string `gorm:"not null"`
	LabelColumn string `gorm:"not null"`
	BaseModel   string `gorm:"not null"`

	Status string `gorm:"size:20;not null"`
	Error  sql.NullString

	TrainExamples      int
	ValidationExamples int
	DroppedRows        int

	Hyperparameters datatypes.JSON

	CheckpointDir string
	CheckpointUri sql.NullString

	CreationTime   time.Time
	CompletionTime sql.NullTime

	Labels []RunLabel `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

// RunLabel is one entry of the label vocabulary a run was trained with.
type RunLabel struct {
	RunId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position int       `gorm:"primaryKey;autoIncrement:false"`
	Label    string    `gorm:"not null"`
}
