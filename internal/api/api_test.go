package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	backend "langid-backend/internal/api"
	"langid-backend/internal/core"
	"langid-backend/internal/database"
	"langid-backend/internal/labels"
	"langid-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubClassifier struct {
	logits []float32
	err    error
	calls  int
}

func (c *stubClassifier) Logits(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.logits, c.err
}

func (c *stubClassifier) Release() {}

func newRouter(t *testing.T, classifier core.Classifier) chi.Router {
	vocab, err := labels.Build([]string{"English", "French"})
	require.NoError(t, err)

	service := backend.NewPredictionService(core.NewPredictor(classifier, vocab))
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPredict(t *testing.T) {
	router := newRouter(t, &stubClassifier{logits: []float32{2.0, 0.1}})

	rec := post(router, "/predict", `{"text": "Hello, how are you?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp api.PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "English", resp.Language)
	assert.Equal(t, "success", resp.Status)
	assert.InDelta(t, 0.8699, resp.Confidence, 1e-3)
}

func TestPredictUnknownLabel(t *testing.T) {
	router := newRouter(t, &stubClassifier{logits: []float32{0.1, 0.2, 5.0}})

	rec := post(router, "/predict", `{"text": "???"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown", resp.Language)
}

func TestPredictBadRequests(t *testing.T) {
	for name, body := range map[string]string{
		"MissingText": `{}`,
		"EmptyText":   `{"text": ""}`,
		"NullText":    `{"text": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			classifier := &stubClassifier{logits: []float32{1, 0}}
			rec := post(newRouter(t, classifier), "/predict", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error": "No text provided"}`, rec.Body.String())
			assert.Zero(t, classifier.calls)
		})
	}

	t.Run("MalformedJson", func(t *testing.T) {
		rec := post(newRouter(t, &stubClassifier{}), "/predict", `{"text": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "unable to parse request body"}`, rec.Body.String())
	})
}

func TestPredictWhitespaceText(t *testing.T) {
	classifier := &stubClassifier{logits: []float32{0.2, 1.4}}
	rec := post(newRouter(t, classifier), "/predict", `{"text": "   "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "French", resp.Language)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 1, classifier.calls)
}

func TestPredictInferenceFailure(t *testing.T) {
	router := newRouter(t, &stubClassifier{err: errors.New("onnx session crashed")})

	rec := post(router, "/predict", `{"text": "hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Contains(t, resp.Error, "onnx session crashed")

	// the service keeps answering after a failed request
	rec = post(router, "/predict", `{"text": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndLabels(t *testing.T) {
	router := newRouter(t, &stubClassifier{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/labels", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels": ["English", "French"]}`, rec.Body.String())
}

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func runsRouter(db *gorm.DB) chi.Router {
	router := chi.NewRouter()
	backend.NewRunService(db).AddRoutes(router)
	return router
}

func TestListRuns(t *testing.T) {
	now := time.Now().UTC()
	completed, failed := uuid.New(), uuid.New()
	db := createDB(t,
		&database.TrainingRun{Id: completed, DatasetPath: "a.csv", TextColumn: "Text", LabelColumn: "language", BaseModel: "xlm-roberta-base", Status: database.RunCompleted, CreationTime: now},
		&database.TrainingRun{Id: failed, DatasetPath: "b.csv", TextColumn: "Text", LabelColumn: "language", BaseModel: "xlm-roberta-base", Status: database.RunFailed, CreationTime: now.Add(time.Minute)},
		&database.RunLabel{RunId: completed, Position: 0, Label: "English"},
		&database.RunLabel{RunId: completed, Position: 1, Label: "French"},
	)
	router := runsRouter(db)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var all []api.TrainingRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, failed, all[0].Id)
	assert.Equal(t, completed, all[1].Id)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?status=COMPLETED&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var filtered []api.TrainingRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, []string{"English", "French"}, filtered[0].Labels)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	runId := uuid.New()
	db := createDB(t,
		&database.TrainingRun{Id: runId, DatasetPath: "a.csv", TextColumn: "Text", LabelColumn: "language", BaseModel: "xlm-roberta-base", Status: database.RunTraining, CreationTime: time.Now()},
	)
	router := runsRouter(db)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+runId.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var run api.TrainingRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, runId, run.Id)
	assert.Equal(t, database.RunTraining, run.Status)
	assert.Nil(t, run.CompletionTime)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
