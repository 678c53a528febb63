package api

import (
	"errors"
	"net/http"

	"langid-backend/internal/database"
	"langid-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

const maxRunsPerPage = 100

// RunService exposes the training-run registry read-only.
type RunService struct {
	db *gorm.DB
}

func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

func (s *RunService) AddRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListRuns))
		r.Get("/{run_id}", RestHandler(s.GetRun))
	})
}

func (s *RunService) ListRuns(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ListRunsParams](r)
	if err != nil {
		return nil, err
	}

	if params.Limit < 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "limit must be non-negative")
	}
	if params.Limit == 0 || params.Limit > maxRunsPerPage {
		params.Limit = maxRunsPerPage
	}

	runs, err := database.ListRuns(r.Context(), s.db, params.Status, params.Limit)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing training runs")
	}

	out := make([]api.TrainingRun, 0, len(runs))
	for i := range runs {
		out = append(out, convertRun(&runs[i]))
	}
	return out, nil
}

func (s *RunService) GetRun(r *http.Request) (any, error) {
	runId, err := URLParamUUID(r, "run_id")
	if err != nil {
		return nil, err
	}

	run, err := database.GetRun(r.Context(), s.db, runId)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "training run %s not found", runId)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving training run")
	}

	return convertRun(run), nil
}

func convertRun(run *database.TrainingRun) api.TrainingRun {
	out := api.TrainingRun{
		Id:                 run.Id,
		Status:             run.Status,
		DatasetPath:        run.DatasetPath,
		BaseModel:          run.BaseModel,
		TrainExamples:      run.TrainExamples,
		ValidationExamples: run.ValidationExamples,
		DroppedRows:        run.DroppedRows,
		Labels:             run.LabelNames(),
		CheckpointDir:      run.CheckpointDir,
		CreationTime:       run.CreationTime,
	}
	if run.Error.Valid {
		out.Error = run.Error.String
	}
	if run.CheckpointUri.Valid {
		out.CheckpointUri = run.CheckpointUri.String
	}
	if run.CompletionTime.Valid {
		out.CompletionTime = &run.CompletionTime.Time
	}
	return out
}
