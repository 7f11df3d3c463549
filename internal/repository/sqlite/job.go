package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

var _ repository.JobRepository = (*JobDB)(nil)

var jobColumns = []string{
	"id", "user_id", "company", "position", "status", "job_type", "location",
	"salary_min", "salary_max", "url", "notes", "applied_date", "deadline",
	"created_at", "updated_at",
}

// sortColumns maps every accepted sort field to the column it orders by.
// ORDER BY cannot be parameterised, so only strings from this table are
// ever written into the query.
var sortColumns = map[repository.SortField]string{
	repository.SortCreatedAt:   "created_at",
	repository.SortUpdatedAt:   "updated_at",
	repository.SortCompany:     "company",
	repository.SortPosition:    "position",
	repository.SortStatus:      "status",
	repository.SortAppliedDate: "applied_date",
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type JobDB struct {
	db *DB
}

func (db *DB) Jobs() *JobDB { return &JobDB{db: db} }

func ownedBy(userID, jobID int64) squirrel.Eq {
	return squirrel.Eq{"id": jobID, "user_id": userID}
}

func jobFilter(userID int64, f repository.JobFilter) squirrel.And {
	where := squirrel.And{squirrel.Eq{"user_id": userID}}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"status": string(f.Status)})
	}
	if f.JobType != "" {
		where = append(where, squirrel.Eq{"job_type": string(f.JobType)})
	}
	if f.Search != "" {
		// both sides are folded, so the match ignores case beyond ASCII too
		pattern := "%" + likeEscaper.Replace(foldCase(f.Search)) + "%"
		where = append(where, squirrel.Or{
			squirrel.Expr(foldFunc+`(company) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(foldFunc+`(position) LIKE ? ESCAPE '\'`, pattern),
		})
	}
	return where
}

// List returns one page of the user's jobs and the number of jobs matching
// the filter. Both queries run under the same read lock.
//
// Ties on the sort column are broken by id in the same direction so that
// pages never overlap or skip rows.
func (j *JobDB) List(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.Job, int, error) {
	if opts.Limit <= 0 {
		return nil, 0, fmt.Errorf("sqlite: listing jobs: limit must be positive, got %d", opts.Limit)
	}
	if opts.Offset < 0 {
		return nil, 0, fmt.Errorf("sqlite: listing jobs: offset must not be negative, got %d", opts.Offset)
	}

	col, ok := sortColumns[opts.Sort.Field]
	dir := "ASC"
	if !ok {
		col, dir = "created_at", "DESC"
	} else if opts.Sort.Desc {
		dir = "DESC"
	}

	where := jobFilter(userID, opts.Filter)
	page := squirrel.Select(jobColumns...).From("jobs").Where(where).
		OrderBy(col+" "+dir, "id "+dir).
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset))
	count := squirrel.Select("COUNT(*)").From("jobs").Where(where)

	jobs := []model.Job{}
	var total int
	err := j.db.View(ctx, func(q sqlx.QueryerContext) error {
		if err := getx(ctx, q, &total, count); err != nil {
			return err
		}
		return selectx(ctx, q, &jobs, page)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing jobs for user %d: %w", userID, err)
	}
	return jobs, total, nil
}

// GetOwned returns the job only if userID owns it, apperror.ErrNotFound
// otherwise.
func (j *JobDB) GetOwned(ctx context.Context, userID, jobID int64) (*model.Job, error) {
	var job model.Job
	q := squirrel.Select(jobColumns...).From("jobs").Where(ownedBy(userID, jobID))
	if err := j.db.Get(ctx, &job, q); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("Job application")
		}
		return nil, fmt.Errorf("sqlite: getting job %d: %w", jobID, err)
	}
	return &job, nil
}

func getOwnedTx(ctx context.Context, tx *sqlx.Tx, userID, jobID int64) (*model.Job, error) {
	var job model.Job
	q := squirrel.Select(jobColumns...).From("jobs").Where(ownedBy(userID, jobID))
	if err := getx(ctx, tx, &job, q); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("Job application")
		}
		return nil, fmt.Errorf("sqlite: getting job %d: %w", jobID, err)
	}
	return &job, nil
}

// Create inserts job and sets its ID. Status, JobType and both timestamps
// must be filled in by the caller.
func (j *JobDB) Create(ctx context.Context, job *model.Job) error {
	q := squirrel.Insert("jobs").
		Columns(jobColumns[1:]...).
		Values(
			job.UserID, job.Company, job.Position, string(job.Status), string(job.JobType),
			job.Location, job.SalaryMin, job.SalaryMax, job.URL, job.Notes,
			job.AppliedDate, job.Deadline, job.CreatedAt, job.UpdatedAt,
		)

	return j.db.Mutate(ctx, func(tx *sqlx.Tx) error {
		id, err := insertx(ctx, tx, q)
		if err != nil {
			return fmt.Errorf("sqlite: inserting job for user %d: %w", job.UserID, err)
		}
		job.ID = id
		return nil
	})
}

// Update applies every non-nil field of f. An empty string in an optional
// text field clears the column.
func (j *JobDB) Update(ctx context.Context, userID, jobID int64, f model.JobFields, now time.Time) (*model.Job, error) {
	var updated *model.Job
	err := j.db.Mutate(ctx, func(tx *sqlx.Tx) error {
		cur, err := getOwnedTx(ctx, tx, userID, jobID)
		if err != nil {
			return err
		}

		set := changes(f)
		set["updated_at"] = nextUpdatedAt(now, cur.UpdatedAt)

		q := squirrel.Update("jobs").SetMap(set).Where(ownedBy(userID, jobID))
		if _, err := execx(ctx, tx, q); err != nil {
			return fmt.Errorf("sqlite: updating job %d: %w", jobID, err)
		}

		updated, err = getOwnedTx(ctx, tx, userID, jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus sets the status alone and reports what it was before.
func (j *JobDB) UpdateStatus(ctx context.Context, userID, jobID int64, status model.Status, now time.Time) (model.Status, *model.Job, error) {
	var (
		previous model.Status
		updated  *model.Job
	)
	err := j.db.Mutate(ctx, func(tx *sqlx.Tx) error {
		cur, err := getOwnedTx(ctx, tx, userID, jobID)
		if err != nil {
			return err
		}
		previous = cur.Status

		q := squirrel.Update("jobs").
			Set("status", string(status)).
			Set("updated_at", nextUpdatedAt(now, cur.UpdatedAt)).
			Where(ownedBy(userID, jobID))
		if _, err := execx(ctx, tx, q); err != nil {
			return fmt.Errorf("sqlite: updating status of job %d: %w", jobID, err)
		}

		updated, err = getOwnedTx(ctx, tx, userID, jobID)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return previous, updated, nil
}

func (j *JobDB) Delete(ctx context.Context, userID, jobID int64) (*model.Job, error) {
	var deleted *model.Job
	err := j.db.Mutate(ctx, func(tx *sqlx.Tx) error {
		cur, err := getOwnedTx(ctx, tx, userID, jobID)
		if err != nil {
			return err
		}
		if _, err := execx(ctx, tx, squirrel.Delete("jobs").Where(ownedBy(userID, jobID))); err != nil {
			return fmt.Errorf("sqlite: deleting job %d: %w", jobID, err)
		}
		deleted = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// CountByStatus returns how many jobs the user has in each status. Statuses
// with no jobs are absent from the map.
func (j *JobDB) CountByStatus(ctx context.Context, userID int64) (map[model.Status]int, error) {
	var rows []struct {
		Status model.Status `db:"status"`
		Count  int          `db:"n"`
	}
	q := squirrel.Select("status", "COUNT(*) AS n").From("jobs").
		Where(squirrel.Eq{"user_id": userID}).
		GroupBy("status")
	if err := j.db.Query(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("sqlite: counting jobs for user %d: %w", userID, err)
	}

	counts := make(map[model.Status]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// changes turns the supplied fields into a column map for UPDATE.
func changes(f model.JobFields) map[string]any {
	set := map[string]any{}
	if f.Company != nil {
		set["company"] = *f.Company
	}
	if f.Position != nil {
		set["position"] = *f.Position
	}
	if f.Status != nil {
		set["status"] = string(*f.Status)
	}
	if f.JobType != nil {
		set["job_type"] = string(*f.JobType)
	}
	optional := map[string]*string{
		"location":     f.Location,
		"url":          f.URL,
		"notes":        f.Notes,
		"applied_date": f.AppliedDate,
		"deadline":     f.Deadline,
	}
	for col, v := range optional {
		if v != nil {
			set[col] = nullIfEmpty(*v)
		}
	}
	if f.SalaryMin != nil {
		set["salary_min"] = *f.SalaryMin
	}
	if f.SalaryMax != nil {
		set["salary_max"] = *f.SalaryMax
	}
	return set
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nextUpdatedAt keeps updated_at strictly increasing even when the clock
// stands still or steps back between two writes.
func nextUpdatedAt(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
