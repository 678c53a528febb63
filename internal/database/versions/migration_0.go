package versions

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

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

	CreationTime   time.Time
	CompletionTime sql.NullTime

	Labels []RunLabel `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

type RunLabel struct {
	RunId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position int       `gorm:"primaryKey;autoIncrement:false"`
	Label    string    `gorm:"not null"`
}

func Migration0(db *gorm.DB) error {
	return db.AutoMigrate(&TrainingRun{}, &RunLabel{})
}
