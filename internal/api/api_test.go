package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	backend "exoplanet-backend/internal/api"
	"exoplanet-backend/internal/core"
	"exoplanet-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mockModel struct {
	scores []float32
	err    error
	calls  int
}

func (m *mockModel) Predict(batch core.SequenceBatch) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.scores != nil {
		return m.scores, nil
	}
	// default: score each row by its first feature
	scores := make([]float32, batch.Rows)
	for i := range scores {
		scores[i] = batch.Data[int64(i)*batch.Steps]
	}
	return scores, nil
}

func (m *mockModel) Info() core.ModelInfo {
	return core.ModelInfo{Id: uuid.New(), Type: core.OnnxRnn, Path: "RNN_15-4.onnx"}
}

func (m *mockModel) Release() {}

func createRouter(model core.Model) http.Handler {
	router := chi.NewRouter()
	backend.NewPredictionService(core.NewPredictor(model)).AddRoutes(router)
	return router
}

func uploadRequest(t *testing.T, field, filename string, content io.Reader) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.Copy(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func readWorkbook(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(core.WorkbookSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, code int, message string) {
	t.Helper()
	assert.Equal(t, code, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	var response api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, message, response.Error)
}

func TestWelcome(t *testing.T) {
	router := createRouter(nil)

	var bodies []string
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		bodies = append(bodies, rec.Body.String())
	}

	var response api.WelcomeResponse
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &response))
	assert.Equal(t, "Welcome to the RNN Prediction API", response.Message)
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[1], bodies[2])
}

func TestHealth(t *testing.T) {
	t.Run("Loaded", func(t *testing.T) {
		rec := httptest.NewRecorder()
		createRouter(&mockModel{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response api.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.True(t, response.ModelLoaded)
		require.NotNil(t, response.Model)
		assert.Equal(t, core.OnnxRnn, response.Model.Type)
	})

	t.Run("NotLoaded", func(t *testing.T) {
		rec := httptest.NewRecorder()
		createRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response api.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "ok", response.Status)
		assert.False(t, response.ModelLoaded)
		assert.Nil(t, response.Model)
	})
}

func TestPredict(t *testing.T) {
	model := &mockModel{scores: []float32{0.87}}
	router := createRouter(model)

	req := uploadRequest(t, "file", "data.csv", strings.NewReader("label,f1,f2\n1,0.2,0.9\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "received response: "+rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="predictions_new.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, 1, model.calls)

	assert.Equal(t, [][]string{
		{"Direction", "Probability", "label", "f1", "f2"},
		{"True", "0.87", "1", "0.2", "0.9"},
	}, readWorkbook(t, rec.Body.Bytes()))
}

func TestPredictRowCount(t *testing.T) {
	router := createRouter(&mockModel{})

	for _, n := range []int{1, 7, 64} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			var sb strings.Builder
			sb.WriteString("label,f1,f2,f3\n")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&sb, "%d,%g,0.5,0.25\n", i%2+1, float64(i)/float64(n))
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader(sb.String())))
			require.Equal(t, http.StatusOK, rec.Code)

			rows := readWorkbook(t, rec.Body.Bytes())
			require.Len(t, rows, n+1)
			assert.Equal(t, []string{"Direction", "Probability", "label", "f1", "f2", "f3"}, rows[0])
			for i, row := range rows[1:] {
				assert.Len(t, row, 6)
				expected := "False"
				if float32(float64(i)/float64(n)) > 0.5 {
					expected = "True"
				}
				assert.Equal(t, expected, row[0], "row %d", i)
			}
		})
	}
}

func TestPredictHeaderOnly(t *testing.T) {
	model := &mockModel{}
	rec := httptest.NewRecorder()
	createRouter(model).ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader("label,f1\n")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, model.calls)
	assert.Equal(t, [][]string{{"Direction", "Probability", "label", "f1"}}, readWorkbook(t, rec.Body.Bytes()))
}

type recordingReader struct {
	read bool
}

func (r *recordingReader) Read(p []byte) (int, error) {
	r.read = true
	return 0, io.EOF
}

func TestPredictModelNotLoaded(t *testing.T) {
	body := &recordingReader{}
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")

	rec := httptest.NewRecorder()
	createRouter(nil).ServeHTTP(rec, req)

	assertErrorResponse(t, rec, http.StatusServiceUnavailable, "Model is not loaded")
	assert.False(t, body.read, "upload should not be read when the model is not loaded")
}

func TestPredictInvalidCsv(t *testing.T) {
	model := &mockModel{}
	router := createRouter(model)

	for _, data := range []string{
		"label,f1,f2\n1,0.2,0.9\n1,0.2,0.9,4\n",
		"label,f1,f2\n1,0.2\n",
		"label,f1\n1,\"0.5\n",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader(data)))
		assertErrorResponse(t, rec, http.StatusUnprocessableEntity, "Validation Error: Invalid CSV file format")
	}
	assert.Equal(t, 0, model.calls)
}

func TestPredictMissingUpload(t *testing.T) {
	router := createRouter(&mockModel{})

	t.Run("WrongField", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, "document", "data.csv", strings.NewReader("label,f1\n1,2\n")))
		assertErrorResponse(t, rec, http.StatusUnprocessableEntity, "Validation Error: missing file upload")
	})

	t.Run("NotMultipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("label,f1\n1,2\n"))
		req.Header.Set("Content-Type", "text/csv")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assertErrorResponse(t, rec, http.StatusUnprocessableEntity, "Validation Error: missing file upload")
	})
}

func TestPredictProcessingErrors(t *testing.T) {
	t.Run("NonNumeric", func(t *testing.T) {
		rec := httptest.NewRecorder()
		createRouter(&mockModel{}).ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader("label,f1\n1,abc\n")))
		assertErrorResponse(t, rec, http.StatusInternalServerError, "Internal Server Error")
	})

	t.Run("EmptyFile", func(t *testing.T) {
		rec := httptest.NewRecorder()
		createRouter(&mockModel{}).ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader("")))
		assertErrorResponse(t, rec, http.StatusInternalServerError, "Internal Server Error")
	})

	t.Run("InferenceFailure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		createRouter(&mockModel{err: errors.New("input shape mismatch")}).ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader("label,f1\n1,2\n")))
		assertErrorResponse(t, rec, http.StatusInternalServerError, "Internal Server Error")
		assert.NotContains(t, rec.Body.String(), "shape")
	})
}

func TestPredictRecoversAfterFailure(t *testing.T) {
	model := &mockModel{}
	router := createRouter(model)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader("label,f1\n1,2,3\n")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", "data.csv", strings.NewReader("label,f1\n1,0.75\n")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"True", "0.75", "1", "0.75"}, readWorkbook(t, rec.Body.Bytes())[1])
}
