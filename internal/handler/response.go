package handler

// RESPONSE HELPERS:
// Every response from the API uses one envelope:
//
//	{"success": true,  "data": {...}, "message": "...", "pagination": {...}}
//	{"success": false, "error": "Job application not found", "details": {...}}
//
// Handlers never build that shape by hand; they call writeJSON/writeOK for
// success and writeError for failures. writeError is the only place where
// domain errors turn into HTTP status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/service"
)

const msgInternal = "An internal error occurred"

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success    bool                `json:"success"`
	Data       any                 `json:"data,omitempty"`
	Message    string              `json:"message,omitempty"`
	Error      string              `json:"error,omitempty"`
	Details    map[string]string   `json:"details,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
}

// writeJSON sends body with the given status code. Headers must be set
// before WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// headers are gone already, all we can do is log
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message})
}

// writeError maps a domain error to a status code and a client-safe message.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation          → 400 (+ per-field details)
//	any authentication failure      → 401
//	apperror.ErrNotFound            → 404
//	apperror.ErrConflict            → 409
//	*http.MaxBytesError             → 413
//	anything else, ErrStorage too   → 500 with a generic message
//
// Only AppError.Message ever reaches the client. Wrapped causes (SQL text,
// file paths) go to the log.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, Envelope{
			Error: fmt.Sprintf("Request body must not exceed %d bytes", tooLarge.Limit),
		})
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || errors.Is(err, apperror.ErrStorage) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, Envelope{Error: msgInternal})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case apperror.IsUnauthorized(err):
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Bearer realm="job-tracker"`)
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, status, Envelope{Error: msgInternal})
		return
	}
	writeJSON(w, status, Envelope{Error: appErr.Message, Details: appErr.Details})
}

// typeMessages are shown when a JSON value has the wrong type for a field.
var typeMessages = map[string]string{
	"salary_min": "Minimum salary must be a positive number",
	"salary_max": "Maximum salary must be a positive number",
}

// decodeJSON reads one JSON object from the request body into dst.
// A body over the size limit comes back as *http.MaxBytesError.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var (
		tooLarge *http.MaxBytesError
		typeErr  *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.As(err, &typeErr) && typeErr.Field != "":
		msg, ok := typeMessages[typeErr.Field]
		if !ok {
			msg = fmt.Sprintf("Invalid value for %s", typeErr.Field)
		}
		return apperror.Invalid(msg, map[string]string{typeErr.Field: msg})
	}
	// syntax errors, an empty body (io.EOF) and a top-level non-object
	return apperror.ValidationFailed("", "Request body must be a valid JSON object")
}
