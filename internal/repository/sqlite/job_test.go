package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func createJobAt(t *testing.T, db *DB, userID int64, company, position string, at time.Time) *model.Job {
	t.Helper()
	job := &model.Job{
		UserID:    userID,
		Company:   company,
		Position:  position,
		Status:    model.StatusApplied,
		JobType:   model.JobTypeFullTime,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, db.Jobs().Create(context.Background(), job))
	return job
}

func createJob(t *testing.T, db *DB, userID int64, company, position string) *model.Job {
	t.Helper()
	return createJobAt(t, db, userID, company, position, testTime)
}

func listAll(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit == 0 {
		opts.Limit = 100
	}
	return opts
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestJobCreate_RoundTripsOptionalFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	job := &model.Job{
		UserID: alice.ID, Company: "Acme", Position: "Engineer",
		Status: model.StatusWishlist, JobType: model.JobTypeContract,
		Location:  ptr("Remote"),
		SalaryMin: ptr(int64(0)),
		SalaryMax: ptr(int64(120000)),
		Deadline:  ptr("2026-04-01"),
		CreatedAt: testTime, UpdatedAt: testTime,
	}
	require.NoError(t, db.Jobs().Create(ctx, job))
	require.NotZero(t, job.ID)

	got, err := db.Jobs().GetOwned(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Remote", *got.Location)
	require.NotNil(t, got.SalaryMin, "a zero salary is a value, not NULL")
	assert.EqualValues(t, 0, *got.SalaryMin)
	assert.Nil(t, got.URL)
	assert.Nil(t, got.AppliedDate)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestJobCreate_UnknownUserViolatesForeignKey(t *testing.T) {
	db := newTestDB(t)

	job := &model.Job{
		UserID: 999, Company: "Acme", Position: "Engineer",
		Status: model.StatusApplied, JobType: model.JobTypeFullTime,
		CreatedAt: testTime, UpdatedAt: testTime,
	}
	err := db.Jobs().Create(context.Background(), job)

	var cv *repository.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, repository.ConstraintForeignKey, cv.Kind)
}

func TestJobCreate_InvalidStatusViolatesCheck(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	job := &model.Job{
		UserID: alice.ID, Company: "Acme", Position: "Engineer",
		Status: "ghosted", JobType: model.JobTypeFullTime,
		CreatedAt: testTime, UpdatedAt: testTime,
	}
	err := db.Jobs().Create(context.Background(), job)

	var cv *repository.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, repository.ConstraintCheck, cv.Kind)
}

func TestJobGetOwned_OtherUserIsNotFound(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	job := createJob(t, db, alice.ID, "Acme", "Engineer")

	_, err := db.Jobs().GetOwned(context.Background(), bob.ID, job.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// LIST
// =========================================================================

func TestJobList_OnlyOwnJobs(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	createJob(t, db, alice.ID, "Acme", "Engineer")
	createJob(t, db, bob.ID, "Globex", "Analyst")

	jobs, total, err := db.Jobs().List(context.Background(), bob.ID, listAll(repository.ListOptions{}))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Globex", jobs[0].Company)
}

func TestJobList_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	jobs, total, err := db.Jobs().List(context.Background(), alice.ID, listAll(repository.ListOptions{}))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestJobList_RejectsNonPositiveLimit(t *testing.T) {
	db := newTestDB(t)

	_, _, err := db.Jobs().List(context.Background(), 1, repository.ListOptions{Limit: 0})
	assert.Error(t, err)
}

func TestJobList_Filters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	createJob(t, db, alice.ID, "Acme", "Backend Engineer")
	globex := createJob(t, db, alice.ID, "Globex", "Data Analyst")
	initech := createJob(t, db, alice.ID, "Initech", "Frontend Engineer")

	_, _, err := db.Jobs().UpdateStatus(ctx, alice.ID, globex.ID, model.StatusInterview, testTime.Add(time.Hour))
	require.NoError(t, err)
	_, err = db.Jobs().Update(ctx, alice.ID, initech.ID, model.JobFields{JobType: ptr(model.JobTypeInternship)}, testTime.Add(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter repository.JobFilter
		want   []string
	}{
		{"by status", repository.JobFilter{Status: model.StatusInterview}, []string{"Globex"}},
		{"by job type", repository.JobFilter{JobType: model.JobTypeInternship}, []string{"Initech"}},
		{"search position ignores case", repository.JobFilter{Search: "ENGINEER"}, []string{"Acme", "Initech"}},
		{"search company", repository.JobFilter{Search: "lob"}, []string{"Globex"}},
		{"combined", repository.JobFilter{Status: model.StatusApplied, Search: "engineer"}, []string{"Acme", "Initech"}},
		{"unknown status matches nothing", repository.JobFilter{Status: "ghosted"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := listAll(repository.ListOptions{
				Filter: tt.filter,
				Sort:   repository.Sort{Field: repository.SortCompany},
			})
			jobs, total, err := db.Jobs().List(ctx, alice.ID, opts)
			require.NoError(t, err)

			got := []string{}
			for _, j := range jobs {
				got = append(got, j.Company)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestJobList_SearchWildcardsAreLiteral(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	createJob(t, db, alice.ID, "100% Remote", "Engineer")
	createJob(t, db, alice.ID, "Acme", "QA_Lead")
	createJob(t, db, alice.ID, "Globex", "QAxLead")

	for search, want := range map[string]string{"%": "100% Remote", "QA_": "Acme"} {
		opts := listAll(repository.ListOptions{Filter: repository.JobFilter{Search: search}})
		jobs, _, err := db.Jobs().List(context.Background(), alice.ID, opts)
		require.NoError(t, err)
		require.Len(t, jobs, 1, "search %q", search)
		assert.Equal(t, want, jobs[0].Company)
	}
}

func TestJobList_SearchFoldsUnicodeCase(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	createJob(t, db, alice.ID, "ÉCOLE Normale", "Teacher")
	createJob(t, db, alice.ID, "Acme", "Straße Planner")
	createJob(t, db, alice.ID, "Globex", "Engineer")

	for search, want := range map[string]string{"école": "ÉCOLE Normale", "STRASSE": "Acme", "normale": "ÉCOLE Normale"} {
		opts := listAll(repository.ListOptions{Filter: repository.JobFilter{Search: search}})
		jobs, total, err := db.Jobs().List(context.Background(), alice.ID, opts)
		require.NoError(t, err)
		require.Len(t, jobs, 1, "search %q", search)
		assert.Equal(t, 1, total)
		assert.Equal(t, want, jobs[0].Company)
	}
}

func TestJobList_RejectsNegativeOffset(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	createJob(t, db, alice.ID, "Acme", "Engineer")

	_, _, err := db.Jobs().List(context.Background(), alice.ID, repository.ListOptions{Limit: 10, Offset: -10})
	assert.Error(t, err)
}

func TestJobList_HugeOffsetIsEmpty(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	createJob(t, db, alice.ID, "Acme", "Engineer")

	jobs, total, err := db.Jobs().List(context.Background(), alice.ID, repository.ListOptions{Limit: 10, Offset: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 1, total)
}

func TestFoldValue(t *testing.T) {
	got, err := foldValue(nil, []driver.Value{"ÉCOLE"})
	require.NoError(t, err)
	assert.Equal(t, "école", got)

	got, err = foldValue(nil, []driver.Value{nil})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = foldValue(nil, []driver.Value{int64(3)})
	assert.Error(t, err)
}

func TestJobList_PaginationWithTiedSortKeys(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	// same created_at on purpose: the id tiebreak must keep pages disjoint
	for i := 1; i <= 5; i++ {
		createJob(t, db, alice.ID, fmt.Sprintf("Company %d", i), "Engineer")
	}

	seen := map[int64]bool{}
	for offset := 0; offset < 6; offset += 2 {
		jobs, total, err := db.Jobs().List(ctx, alice.ID, repository.ListOptions{
			Sort:   repository.ParseSort("created_at", "desc"),
			Limit:  2,
			Offset: offset,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		for _, j := range jobs {
			assert.False(t, seen[j.ID], "job %d returned twice", j.ID)
			seen[j.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestJobList_Sort(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	createJobAt(t, db, alice.ID, "Beta", "Engineer", testTime)
	createJobAt(t, db, alice.ID, "Alpha", "Engineer", testTime.Add(time.Minute))
	createJobAt(t, db, alice.ID, "Gamma", "Engineer", testTime.Add(2*time.Minute))

	tests := []struct {
		name  string
		sort  repository.Sort
		first string
	}{
		{"company asc", repository.ParseSort("company", "asc"), "Alpha"},
		{"company desc", repository.ParseSort("company", "desc"), "Gamma"},
		{"created_at asc", repository.ParseSort("created_at", "ASC"), "Beta"},
		{"unknown field falls back to newest first", repository.ParseSort("salary; DROP TABLE jobs", "asc"), "Gamma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, _, err := db.Jobs().List(ctx, alice.ID, listAll(repository.ListOptions{Sort: tt.sort}))
			require.NoError(t, err)
			require.Len(t, jobs, 3)
			assert.Equal(t, tt.first, jobs[0].Company)
		})
	}
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestJobUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")

	job := &model.Job{
		UserID: alice.ID, Company: "Acme", Position: "Engineer",
		Status: model.StatusApplied, JobType: model.JobTypeFullTime,
		Location: ptr("Berlin"), Notes: ptr("referral"),
		CreatedAt: testTime, UpdatedAt: testTime,
	}
	require.NoError(t, db.Jobs().Create(ctx, job))

	later := testTime.Add(time.Hour)
	got, err := db.Jobs().Update(ctx, alice.ID, job.ID, model.JobFields{
		Position: ptr("Senior Engineer"),
		Notes:    ptr(""),
	}, later)
	require.NoError(t, err)

	assert.Equal(t, "Acme", got.Company, "absent field must stay")
	assert.Equal(t, "Senior Engineer", got.Position)
	assert.Equal(t, "Berlin", *got.Location)
	assert.Nil(t, got.Notes, "empty string clears an optional field")
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(testTime))
}

func TestJobUpdate_UpdatedAtStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	job := createJob(t, db, alice.ID, "Acme", "Engineer")

	// a clock that stands still, then steps back
	first, err := db.Jobs().Update(ctx, alice.ID, job.ID, model.JobFields{Notes: ptr("a")}, testTime)
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.After(job.UpdatedAt))

	_, second, err := db.Jobs().UpdateStatus(ctx, alice.ID, job.ID, model.StatusOffer, testTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestJobUpdate_OtherUserIsNotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	job := createJob(t, db, alice.ID, "Acme", "Engineer")

	_, err := db.Jobs().Update(ctx, bob.ID, job.ID, model.JobFields{Company: ptr("Hacked")}, testTime)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := db.Jobs().GetOwned(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
}

func TestJobUpdateStatus_ReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	job := createJob(t, db, alice.ID, "Acme", "Engineer")

	prev, got, err := db.Jobs().UpdateStatus(ctx, alice.ID, job.ID, model.StatusInterview, testTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusApplied, prev)
	assert.Equal(t, model.StatusInterview, got.Status)
	assert.Equal(t, "Acme", got.Company)
}

func TestJobDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	job := createJob(t, db, alice.ID, "Acme", "Engineer")

	_, err := db.Jobs().Delete(ctx, bob.ID, job.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	deleted, err := db.Jobs().Delete(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", deleted.Company)

	_, err = db.Jobs().GetOwned(ctx, alice.ID, job.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = db.Jobs().Delete(ctx, alice.ID, job.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestJobCountByStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	createJob(t, db, alice.ID, "Acme", "Engineer")
	createJob(t, db, alice.ID, "Globex", "Engineer")
	offer := createJob(t, db, alice.ID, "Initech", "Engineer")
	createJob(t, db, bob.ID, "Umbrella", "Engineer")
	_, _, err := db.Jobs().UpdateStatus(ctx, alice.ID, offer.ID, model.StatusOffer, testTime.Add(time.Hour))
	require.NoError(t, err)

	counts, err := db.Jobs().CountByStatus(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, map[model.Status]int{model.StatusApplied: 2, model.StatusOffer: 1}, counts)
}
