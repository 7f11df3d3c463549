package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/service"
	"github.com/sakif/job-tracker/internal/validation"
)

const maxTextLen = 200

// Jobs is the part of service.JobService the job handlers use.
type Jobs interface {
	List(ctx context.Context, userID int64, q service.ListQuery) (*service.JobPage, error)
	Get(ctx context.Context, userID, jobID int64) (*model.Job, error)
	Create(ctx context.Context, userID int64, f model.JobFields) (*model.Job, error)
	Update(ctx context.Context, userID, jobID int64, f model.JobFields) (*model.Job, error)
	UpdateStatus(ctx context.Context, userID, jobID int64, status model.Status) (*model.Job, string, error)
	Delete(ctx context.Context, userID, jobID int64) (string, error)
}

// JobHandler serves /api/jobs. Every route runs behind auth.RequireAuth and
// acts on the authenticated user's jobs only.
//
//	GET    /              → list (filter, search, sort, paginate)
//	POST   /              → create, 201
//	GET    /{id}          → one job
//	PUT    /{id}          → merge update
//	PATCH  /{id}/status   → status change with a message
//	DELETE /{id}          → delete with a message
type JobHandler struct {
	jobs   Jobs
	logger *slog.Logger
}

func NewJobHandler(jobs Jobs, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

type statusRequest struct {
	Status *model.Status `json:"status"`
}

func (h *JobHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.jobs.List(r.Context(), userID, q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success:    true,
		Data:       page.Jobs,
		Pagination: &page.Pagination,
	})
}

func (h *JobHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), userID, jobID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, job)
}

func (h *JobHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var f model.JobFields
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkJobFields(f); err != nil {
		writeError(w, h.logger, err)
		return
	}

	job, err := h.jobs.Create(r.Context(), userID, f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, job)
}

func (h *JobHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	var f model.JobFields
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkJobFields(f); err != nil {
		writeError(w, h.logger, err)
		return
	}

	job, err := h.jobs.Update(r.Context(), userID, jobID, f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, job)
}

func (h *JobHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Status == nil || *req.Status == "" {
		writeError(w, h.logger, apperror.ValidationFailed("status", "Status is required"))
		return
	}

	job, message, err := h.jobs.UpdateStatus(r.Context(), userID, jobID, *req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: job, Message: message})
}

func (h *JobHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	message, err := h.jobs.Delete(r.Context(), userID, jobID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, message)
}

func (h *JobHandler) user(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.logger.Error("job route reached without a user", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, Envelope{Error: msgInternal})
	}
	return userID, ok
}

// target resolves the user and the {id} path parameter. An id that is not
// a positive integer cannot name any job, so it is a 404 like any other
// unknown id.
func (h *JobHandler) target(w http.ResponseWriter, r *http.Request) (userID, jobID int64, ok bool) {
	userID, ok = h.user(w, r)
	if !ok {
		return 0, 0, false
	}
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || jobID <= 0 {
		writeError(w, h.logger, apperror.NotFound("Job application"))
		return 0, 0, false
	}
	return userID, jobID, true
}

// parseListQuery reads the list parameters. page defaults to 1 and limit to
// service.DefaultListLimit; both must be integers in range when given.
func parseListQuery(r *http.Request) (service.ListQuery, error) {
	qs := r.URL.Query()
	q := service.ListQuery{
		Status:    model.Status(qs.Get("status")),
		JobType:   model.JobType(qs.Get("job_type")),
		Search:    qs.Get("search"),
		SortBy:    qs.Get("sort_by"),
		SortOrder: qs.Get("sort_order"),
		Page:      1,
		Limit:     service.DefaultListLimit,
	}

	v := validation.New()
	if s := qs.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			v.Add("page", "Page must be a positive integer")
		}
		q.Page = n
	}
	if s := qs.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			v.Add("limit", "Limit must be between 1 and 100")
		}
		validation.IntRange(v, "limit", n, 1, service.MaxListLimit, "Limit must be between 1 and 100")
		q.Limit = n
	}
	if q.Status != "" {
		validation.OneOf(v, "status", q.Status, model.Statuses, "Invalid status")
	}
	if q.JobType != "" {
		validation.OneOf(v, "job_type", q.JobType, model.JobTypes, "Invalid job type")
	}
	return q, v.Err()
}

// checkJobFields validates the formats of the supplied fields. Required
// fields, the closed sets and salary bounds are enforced by the service.
func checkJobFields(f model.JobFields) error {
	v := validation.New()
	if f.Company != nil {
		validation.Length(v, "company", strings.TrimSpace(*f.Company), 0, maxTextLen, "Company name must be less than 200 characters")
	}
	if f.Position != nil {
		validation.Length(v, "position", strings.TrimSpace(*f.Position), 0, maxTextLen, "Position must be less than 200 characters")
	}
	if f.Location != nil {
		validation.Length(v, "location", *f.Location, 0, maxTextLen, "Location must be less than 200 characters")
	}
	if f.SalaryMin != nil {
		validation.NonNegative(v, "salary_min", *f.SalaryMin, "Minimum salary must be a positive number")
	}
	if f.SalaryMax != nil {
		validation.NonNegative(v, "salary_max", *f.SalaryMax, "Maximum salary must be a positive number")
	}
	if f.URL != nil && *f.URL != "" {
		validation.URL(v, "url", *f.URL, "Please provide a valid URL")
	}
	if f.AppliedDate != nil && *f.AppliedDate != "" {
		validation.Date(v, "applied_date", *f.AppliedDate, "Applied date must be a date in YYYY-MM-DD format")
	}
	if f.Deadline != nil && *f.Deadline != "" {
		validation.Date(v, "deadline", *f.Deadline, "Deadline must be a date in YYYY-MM-DD format")
	}
	return v.Err()
}
