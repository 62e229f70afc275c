package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"exoplanet-backend/internal/core"
	"exoplanet-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovererWritesErrorEnvelope(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer)
	router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("index out of range")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Internal Server Error", response.Error)
	assert.NotContains(t, rec.Body.String(), "index out of range")
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestCodedErrorKeepsCause(t *testing.T) {
	cause := errors.New("upstream failure")
	err := CodedError(http.StatusBadGateway, cause)

	assert.ErrorIs(t, err, cause)

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"upstream failure"}`, rec.Body.String())
}

func TestPredictMissingUploadIsCoded(t *testing.T) {
	service := NewPredictionService(core.NewPredictor(&stubModel{}))

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("label,f1\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")

	_, err := service.Predict(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingUpload)

	var cerr *codedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusUnprocessableEntity, cerr.code)
}

type stubModel struct{}

func (m *stubModel) Predict(batch core.SequenceBatch) ([]float32, error) {
	return make([]float32, batch.Rows), nil
}

func (m *stubModel) Info() core.ModelInfo {
	return core.ModelInfo{Type: core.OnnxRnn}
}

func (m *stubModel) Release() {}
