package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/job-tracker/internal/model"
)

// SortField is a column jobs may be ordered by. Only the values below ever
// reach SQL; anything else is mapped to SortCreatedAt by ParseSort.
type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortUpdatedAt   SortField = "updated_at"
	SortCompany     SortField = "company"
	SortPosition    SortField = "position"
	SortStatus      SortField = "status"
	SortAppliedDate SortField = "applied_date"
)

var sortFields = map[SortField]bool{
	SortCreatedAt:   true,
	SortUpdatedAt:   true,
	SortCompany:     true,
	SortPosition:    true,
	SortStatus:      true,
	SortAppliedDate: true,
}

// Valid reports whether f is one of the sortable columns.
func (f SortField) Valid() bool { return sortFields[f] }

type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSort resolves user-supplied sort parameters. An unknown field falls
// back to newest first, ignoring the requested order. The order is
// descending unless it is exactly "asc" (any case).
func ParseSort(field, order string) Sort {
	f := SortField(field)
	if !f.Valid() {
		return Sort{Field: SortCreatedAt, Desc: true}
	}
	return Sort{Field: f, Desc: !strings.EqualFold(order, "asc")}
}

// JobFilter narrows a listing. Zero values mean "no constraint".
type JobFilter struct {
	Status  model.Status
	JobType model.JobType
	// Search is a case-insensitive substring matched against company or
	// position. Wildcard characters in it are matched literally.
	Search string
}

type ListOptions struct {
	Filter JobFilter
	Sort   Sort
	Limit  int
	Offset int
}

type UserRepository interface {
	// Create stores user and fills in ID. A duplicate username or email is
	// reported as a unique ConstraintViolation by the storage layer.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Delete removes the user and, by cascade, every job they own.
	Delete(ctx context.Context, id int64) error
}

// JobRepository stores job applications. Every method that addresses a
// single job takes the owner's id as well and never touches another user's
// row: a job owned by someone else is indistinguishable from a missing one.
type JobRepository interface {
	// List returns one page of the user's jobs plus the total number of
	// matches before paging.
	List(ctx context.Context, userID int64, opts ListOptions) ([]model.Job, int, error)
	GetOwned(ctx context.Context, userID, jobID int64) (*model.Job, error)
	Create(ctx context.Context, job *model.Job) error
	// Update applies the non-nil fields. updated_at becomes now, or one
	// microsecond past the stored value when now is not later than it.
	Update(ctx context.Context, userID, jobID int64, fields model.JobFields, now time.Time) (*model.Job, error)
	// UpdateStatus changes only the status and returns the previous one.
	UpdateStatus(ctx context.Context, userID, jobID int64, status model.Status, now time.Time) (model.Status, *model.Job, error)
	// Delete removes the job and returns it as it was.
	Delete(ctx context.Context, userID, jobID int64) (*model.Job, error)
	CountByStatus(ctx context.Context, userID int64) (map[model.Status]int, error)
}

// ConstraintKind names the kind of integrity rule a write broke.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintNotNull    ConstraintKind = "not_null"
)

// ConstraintViolation is returned by writes the schema rejected. Services
// turn it into a domain error; the raw driver text never reaches a client.
type ConstraintViolation struct {
	Kind   ConstraintKind
	Table  string // empty when the store does not name one
	Column string
	Err    error
}

func (e *ConstraintViolation) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s constraint violated", e.Kind)
	if e.Table != "" {
		fmt.Fprintf(&b, ": table=%s", e.Table)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column=%s", e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// IsUnique reports whether err is a unique violation on table.column.
func IsUnique(err error, table, column string) bool {
	var cv *ConstraintViolation
	if !errors.As(err, &cv) {
		return false
	}
	return cv.Kind == ConstraintUnique && cv.Table == table && cv.Column == column
}

// IsConstraint reports whether err is a violation of the given kind.
func IsConstraint(err error, kind ConstraintKind) bool {
	var cv *ConstraintViolation
	return errors.As(err, &cv) && cv.Kind == kind
}
