package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes bounds request bodies to keep malformed clients from
// holding connections open with unbounded payloads.
const maxBodyBytes = 1 << 20 // 1 MiB

// envelope is the uniform JSON response shape.
type envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// JSON writes data wrapped in the standard envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error renders err as the standard error envelope. HTTPError values keep
// their status and key; anything else is logged and surfaced as an opaque
// internal error so that internals never leak to clients.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var httpErr HTTPError
	if !errors.As(err, &httpErr) {
		if log != nil {
			log.ErrorContext(r.Context(), "unhandled error",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
		}
		httpErr = ErrInternal
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Code)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorDetail{
		Code:    httpErr.Key,
		Message: http.StatusText(httpErr.Code),
	}})
}

// Decode reads a JSON request body into v, rejecting unknown payload shapes
// with ErrBadRequest. An empty body decodes into the zero value.
func Decode(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
