package migration_1

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type TrainingRun struct {
	CheckpointUri sql.NullString
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&TrainingRun{}, "CheckpointUri"); err != nil {
		return fmt.Errorf("error adding CheckpointUri column: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&TrainingRun{}, "CheckpointUri"); err != nil {
		return fmt.Errorf("error dropping CheckpointUri column: %w", err)
	}
	return nil
}
