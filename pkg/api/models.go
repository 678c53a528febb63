package api

import (
	"time"

	"github.com/google/uuid"
)

type PredictRequest struct {
	Text *string `json:"text"`
}

type PredictResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

type LabelsResponse struct {
	Labels []string `json:"labels"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ListRunsParams struct {
	Status string `schema:"status"`
	Limit  int    `schema:"limit"`
}

type TrainingRun struct {
	Id                 uuid.UUID  `json:"id"`
	Status             string     `json:"status"`
	Error              string     `json:"error,omitempty"`
	DatasetPath        string     `json:"dataset_path"`
	BaseModel          string     `json:"base_model"`
	TrainExamples      int        `json:"train_examples"`
	ValidationExamples int        `json:"validation_examples"`
	DroppedRows        int        `json:"dropped_rows"`
	Labels             []string   `json:"labels"`
	CheckpointDir      string     `json:"checkpoint_dir"`
	CheckpointUri      string     `json:"checkpoint_uri,omitempty"`
	CreationTime       time.Time  `json:"creation_time"`
	CompletionTime     *time.Time `json:"completion_time,omitempty"`
}
