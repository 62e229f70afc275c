package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"

	"exoplanet-backend/pkg/api"

	"github.com/go-chi/chi/v5/middleware"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

// writeError renders err as a JSON error envelope. Only the message of a coded
// error reaches the client; anything else is reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := http.StatusInternalServerError, internalServerError

	var cerr *codedError
	if errors.As(err, &cerr) {
		code, msg = cerr.code, cerr.Error()
	} else {
		slog.Error("received non coded error from endpoint", "request_id", middleware.GetReqID(r.Context()), "error", err)
	}

	writeJson(w, code, api.ErrorResponse{Error: msg})
}

// Recoverer turns a panic in a handler into a logged error and the usual JSON
// error envelope with status 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				slog.Error("recovered from panic in handler", "request_id", middleware.GetReqID(r.Context()), "method", r.Method, "path", r.URL.Path, "panic", rvr, "stack", string(debug.Stack()))
				writeError(w, r, CodedErrorf(http.StatusInternalServerError, internalServerError))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

type FileResponse struct {
	Filename    string
	ContentType string
	Body        *bytes.Buffer
}

// FileHandler streams the returned buffer as an attachment. The handler's
// output is fully buffered, so a failed request never sends a partial file.
func FileHandler(handler func(r *http.Request) (*FileResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(res.Body.Len()))
		w.WriteHeader(http.StatusOK)

		if _, err := res.Body.WriteTo(w); err != nil {
			slog.Error("error streaming file response", "request_id", middleware.GetReqID(r.Context()), "filename", res.Filename, "error", err)
		}
	}
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	writeJson(w, http.StatusOK, data)
}

func writeJson(w http.ResponseWriter, code int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.Error("error writing response body", "error", err)
	}
}
