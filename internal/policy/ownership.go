// Package policy decides whether a user may touch a record.
//
// There is one rule: a user may read or change only what they own. A record
// owned by someone else is reported exactly like a record that does not
// exist, so callers cannot discover other users' ids.
package policy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
)

// Ownable is implemented by records that belong to a single user.
type Ownable interface {
	GetUserID() int64
}

// Can reports whether userID owns resource. A nil resource (list, create)
// is always allowed; anything that is not Ownable is denied.
func Can(userID int64, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return userID > 0 && ownable.GetUserID() == userID
}

// JobFinder looks a job up scoped to its owner.
type JobFinder interface {
	GetOwned(ctx context.Context, userID, jobID int64) (*model.Job, error)
}

// OwnershipGuard is the single gate every per-job operation passes through
// before reading or changing a job.
type OwnershipGuard struct {
	jobs   JobFinder
	logger *slog.Logger
}

func NewOwnershipGuard(jobs JobFinder, logger *slog.Logger) *OwnershipGuard {
	return &OwnershipGuard{jobs: jobs, logger: logger}
}

// Owns reports whether jobID exists and belongs to userID.
func (g *OwnershipGuard) Owns(ctx context.Context, userID, jobID int64) (bool, error) {
	_, err := g.Authorize(ctx, userID, jobID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Authorize returns the job when userID owns it and a NotFound error when
// the job is missing or owned by someone else.
func (g *OwnershipGuard) Authorize(ctx context.Context, userID, jobID int64) (*model.Job, error) {
	if userID <= 0 || jobID <= 0 {
		return nil, apperror.NotFound("Job application")
	}

	job, err := g.jobs.GetOwned(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	// GetOwned already filters by owner; this catches a finder that does not.
	if !Can(userID, job) {
		g.logger.Error("finder returned a job owned by another user",
			slog.Int64("userID", userID),
			slog.Int64("jobID", jobID),
		)
		return nil, apperror.NotFound("Job application")
	}
	return job, nil
}
