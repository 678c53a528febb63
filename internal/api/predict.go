package api

import (
	"context"
	"net/http"

	"langid-backend/internal/core/types"
	"langid-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// Predictor is the part of core.Predictor the HTTP layer needs.
type Predictor interface {
	Predict(ctx context.Context, text string) (types.PredictionResult, error)
	Labels() []string
}

type PredictionService struct {
	predictor Predictor
}

func NewPredictionService(predictor Predictor) *PredictionService {
	return &PredictionService{predictor: predictor}
}

func (s *PredictionService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) {
		return api.HealthResponse{Status: "ok"}, nil
	}))
	r.Post("/predict", RestHandler(s.Predict))
	r.Get("/labels", RestHandler(s.Labels))
}

func (s *PredictionService) Predict(r *http.Request) (any, error) {
	req, err := ParseRequest[api.PredictRequest](r)
	if err != nil {
		return nil, err
	}

	var text string
	if req.Text != nil {
		text = *req.Text
	}

	result, err := s.predictor.Predict(r.Context(), text)
	if err != nil {
		return nil, err
	}

	return api.PredictResponse{
		Language:   result.Label,
		Confidence: result.Confidence,
		Status:     result.Status,
	}, nil
}

func (s *PredictionService) Labels(r *http.Request) (any, error) {
	return api.LabelsResponse{Labels: s.predictor.Labels()}, nil
}
