package handler

import (
	"fmt"
	"net/http"
	"time"
)

type HealthHandler struct {
	environment string
	now         func() time.Time
}

func NewHealthHandler(environment string) *HealthHandler {
	return &HealthHandler{environment: environment, now: time.Now}
}

type healthResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

// HandleHealth reports that the API is up. It does not touch storage.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success:     true,
		Message:     "Job Application Tracker API is running",
		Timestamp:   h.now().UTC(),
		Environment: h.environment,
	})
}

// NotFound answers unknown routes with the JSON envelope instead of chi's
// plain-text 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{Error: fmt.Sprintf("Route %s not found", r.URL.RequestURI())})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, Envelope{
		Error: fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path),
	})
}
