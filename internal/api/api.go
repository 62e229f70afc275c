package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"exoplanet-backend/internal/core"
	"exoplanet-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	UploadField        = "file"
	PredictionFilename = "predictions_new.xlsx"
	WelcomeMessage     = "Welcome to the RNN Prediction API"

	modelNotLoaded      = "Model is not loaded"
	invalidCsv          = "Validation Error: Invalid CSV file format"
	missingUpload       = "Validation Error: missing file upload"
	internalServerError = "Internal Server Error"
)

var errMissingUpload = errors.New(missingUpload)

type PredictionService struct {
	predictor *core.Predictor
}

func NewPredictionService(predictor *core.Predictor) *PredictionService {
	return &PredictionService{predictor: predictor}
}

func (s *PredictionService) AddRoutes(r chi.Router) {
	r.Get("/", RestHandler(s.Welcome))
	r.Get("/health", RestHandler(s.Health))
	r.Post("/predict", FileHandler(s.Predict))
}

func (s *PredictionService) Welcome(r *http.Request) (any, error) {
	return api.WelcomeResponse{Message: WelcomeMessage}, nil
}

func (s *PredictionService) Health(r *http.Request) (any, error) {
	return api.HealthResponse{
		Status:      "ok",
		ModelLoaded: s.predictor.Ready(),
		Model:       s.predictor.ModelInfo(),
	}, nil
}

func (s *PredictionService) Predict(r *http.Request) (*FileResponse, error) {
	requestId := middleware.GetReqID(r.Context())

	if !s.predictor.Ready() {
		return nil, CodedErrorf(http.StatusServiceUnavailable, modelNotLoaded)
	}

	upload, err := uploadedFile(r, UploadField)
	if err != nil {
		slog.Error("error reading upload", "request_id", requestId, "error", err)
		return nil, CodedError(http.StatusUnprocessableEntity, errMissingUpload)
	}

	var body bytes.Buffer
	summary, err := s.predictor.Annotate(upload, &body)
	if err != nil {
		return nil, predictionError(requestId, err)
	}

	slog.Info("prediction completed", "request_id", requestId, "rows", summary.Rows, "positives", summary.Positives)

	return &FileResponse{
		Filename:    PredictionFilename,
		ContentType: core.WorkbookContentType,
		Body:        &body,
	}, nil
}

// predictionError logs the full failure and maps its kind to a terse coded error.
func predictionError(requestId string, err error) error {
	detail := fmt.Sprintf("%+v", err)

	switch core.KindOf(err) {
	case core.KindUnavailable:
		return CodedErrorf(http.StatusServiceUnavailable, modelNotLoaded)
	case core.KindValidation:
		slog.Error("error parsing CSV file", "request_id", requestId, "error", detail)
		return CodedErrorf(http.StatusUnprocessableEntity, invalidCsv)
	case core.KindInference:
		slog.Error("error during prediction", "request_id", requestId, "error", detail)
		return CodedErrorf(http.StatusInternalServerError, internalServerError)
	default:
		slog.Error("error processing file", "request_id", requestId, "error", detail)
		return CodedErrorf(http.StatusInternalServerError, internalServerError)
	}
}

// uploadedFile returns the stream of the named file part without buffering the
// request body to memory or disk.
func uploadedFile(r *http.Request, field string) (io.Reader, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("error reading multipart form: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, fmt.Errorf("multipart form has no '%s' field", field)
		}
		if err != nil {
			return nil, fmt.Errorf("error reading multipart form: %w", err)
		}
		if part.FormName() == field {
			return part, nil
		}
	}
}
