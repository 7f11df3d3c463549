package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/policy"
	"github.com/sakif/job-tracker/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListQuery is a user's request for a page of jobs. Sort fields outside the
// allow-list fall back to newest first.
type ListQuery struct {
	Status    model.Status
	JobType   model.JobType
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type JobPage struct {
	Jobs       []model.Job
	Pagination Pagination
}

// JobService manages a user's job applications. Every operation on a single
// job goes through the ownership guard first.
type JobService struct {
	jobs   repository.JobRepository
	guard  *policy.OwnershipGuard
	logger *slog.Logger
	now    func() time.Time
}

func NewJobService(jobs repository.JobRepository, guard *policy.OwnershipGuard, logger *slog.Logger) *JobService {
	return &JobService{
		jobs:   jobs,
		guard:  guard,
		logger: logger,
		now:    now,
	}
}

// List returns one page of the user's jobs. A non-positive limit is a
// validation error; a page below 1 is treated as 1.
func (s *JobService) List(ctx context.Context, userID int64, q ListQuery) (*JobPage, error) {
	if q.Limit <= 0 {
		return nil, apperror.ValidationFailed("limit", "Limit must be a positive integer")
	}
	page := max(q.Page, 1)

	opts := repository.ListOptions{
		Filter: repository.JobFilter{
			Status:  q.Status,
			JobType: q.JobType,
			Search:  strings.TrimSpace(q.Search),
		},
		Sort:   repository.ParseSort(q.SortBy, q.SortOrder),
		Limit:  q.Limit,
		Offset: pageOffset(page, q.Limit),
	}

	jobs, total, err := s.jobs.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/job: listing jobs: %w", err)
	}

	return &JobPage{
		Jobs: jobs,
		Pagination: Pagination{
			Page:  page,
			Limit: q.Limit,
			Total: total,
			Pages: (total + q.Limit - 1) / q.Limit,
		},
	}, nil
}

// pageOffset is (page-1)*limit, saturating at math.MaxInt so that a page far
// beyond the data reads as empty instead of wrapping around to the start.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func (s *JobService) Get(ctx context.Context, userID, jobID int64) (*model.Job, error) {
	return s.guard.Authorize(ctx, userID, jobID)
}

// Create stores a new job for userID. Company and position are required;
// status defaults to applied and job type to full-time. Optional text
// fields given as empty strings are stored as null.
func (s *JobService) Create(ctx context.Context, userID int64, f model.JobFields) (*model.Job, error) {
	if f.Company == nil || strings.TrimSpace(*f.Company) == "" {
		return nil, apperror.ValidationFailed("company", "Company name is required")
	}
	if f.Position == nil || strings.TrimSpace(*f.Position) == "" {
		return nil, apperror.ValidationFailed("position", "Position is required")
	}
	if err := checkFields(f); err != nil {
		return nil, err
	}

	ts := s.now()
	job := &model.Job{
		UserID:      userID,
		Company:     strings.TrimSpace(*f.Company),
		Position:    strings.TrimSpace(*f.Position),
		Status:      model.StatusApplied,
		JobType:     model.JobTypeFullTime,
		Location:    emptyToNil(f.Location),
		SalaryMin:   f.SalaryMin,
		SalaryMax:   f.SalaryMax,
		URL:         emptyToNil(f.URL),
		Notes:       emptyToNil(f.Notes),
		AppliedDate: emptyToNil(f.AppliedDate),
		Deadline:    emptyToNil(f.Deadline),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if f.Status != nil {
		job.Status = *f.Status
	}
	if f.JobType != nil {
		job.JobType = *f.JobType
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, s.writeError("creating job", err)
	}

	s.logger.Info("job created",
		slog.Int64("userID", userID),
		slog.Int64("jobID", job.ID),
	)
	return job, nil
}

// Update merges f into the job: nil fields keep their stored value, an
// empty string clears an optional text field.
func (s *JobService) Update(ctx context.Context, userID, jobID int64, f model.JobFields) (*model.Job, error) {
	if f.Company != nil {
		if strings.TrimSpace(*f.Company) == "" {
			return nil, apperror.ValidationFailed("company", "Company name cannot be empty")
		}
		f.Company = trimmed(*f.Company)
	}
	if f.Position != nil {
		if strings.TrimSpace(*f.Position) == "" {
			return nil, apperror.ValidationFailed("position", "Position cannot be empty")
		}
		f.Position = trimmed(*f.Position)
	}
	if err := checkFields(f); err != nil {
		return nil, err
	}

	if _, err := s.guard.Authorize(ctx, userID, jobID); err != nil {
		return nil, err
	}

	job, err := s.jobs.Update(ctx, userID, jobID, f, s.now())
	if err != nil {
		return nil, s.writeError("updating job", err)
	}
	return job, nil
}

// UpdateStatus moves a job to status and describes the transition.
func (s *JobService) UpdateStatus(ctx context.Context, userID, jobID int64, status model.Status) (*model.Job, string, error) {
	if !status.Valid() {
		return nil, "", invalidStatus()
	}
	if _, err := s.guard.Authorize(ctx, userID, jobID); err != nil {
		return nil, "", err
	}

	previous, job, err := s.jobs.UpdateStatus(ctx, userID, jobID, status, s.now())
	if err != nil {
		return nil, "", s.writeError("updating status", err)
	}

	s.logger.Info("job status changed",
		slog.Int64("jobID", jobID),
		slog.String("from", string(previous)),
		slog.String("to", string(status)),
	)
	return job, fmt.Sprintf("Status changed from '%s' to '%s'", previous, status), nil
}

// Delete removes the job and returns a confirmation naming it.
func (s *JobService) Delete(ctx context.Context, userID, jobID int64) (string, error) {
	if _, err := s.guard.Authorize(ctx, userID, jobID); err != nil {
		return "", err
	}

	job, err := s.jobs.Delete(ctx, userID, jobID)
	if err != nil {
		return "", s.writeError("deleting job", err)
	}
	return fmt.Sprintf("Job application at '%s' for '%s' deleted successfully", job.Company, job.Position), nil
}

// Stats counts the user's jobs per status.
func (s *JobService) Stats(ctx context.Context, userID int64) (model.Stats, error) {
	counts, err := s.jobs.CountByStatus(ctx, userID)
	if err != nil {
		return model.Stats{}, fmt.Errorf("service/job: counting jobs: %w", err)
	}
	return model.NewStats(counts), nil
}

// writeError maps storage failures of a write to domain errors. NotFound and
// storage errors pass through unchanged.
func (s *JobService) writeError(op string, err error) error {
	switch {
	case repository.IsConstraint(err, repository.ConstraintCheck),
		repository.IsConstraint(err, repository.ConstraintNotNull):
		return apperror.ValidationFailed("", "Invalid value provided")
	case repository.IsConstraint(err, repository.ConstraintForeignKey):
		// the owner was deleted between authentication and this write
		return apperror.UnknownSubject()
	}
	return fmt.Errorf("service/job: %s: %w", op, err)
}

// checkFields enforces the closed sets and numeric bounds shared by create
// and update.
func checkFields(f model.JobFields) error {
	if f.Status != nil && !f.Status.Valid() {
		return invalidStatus()
	}
	if f.JobType != nil && !f.JobType.Valid() {
		return apperror.ValidationFailed("job_type",
			"Invalid job type. Must be one of: "+joinValues(model.JobTypes))
	}
	if f.SalaryMin != nil && *f.SalaryMin < 0 {
		return apperror.ValidationFailed("salary_min", "Minimum salary must be a non-negative number")
	}
	if f.SalaryMax != nil && *f.SalaryMax < 0 {
		return apperror.ValidationFailed("salary_max", "Maximum salary must be a non-negative number")
	}
	return nil
}

func invalidStatus() error {
	return apperror.ValidationFailed("status", "Invalid status. Must be one of: "+joinValues(model.Statuses))
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func trimmed(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
