package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "$2a$04$digest",
		CreatedAt:    testTime,
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// ids come from AUTOINCREMENT and start at 1
	if user.ID != 1 {
		t.Errorf("user.ID = %d, want 1", user.ID)
	}
}

func TestUserCreate_DuplicateEmailIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	createUser(t, db, "alice")

	dup := &model.User{
		Username:     "alice2",
		Email:        "ALICE@example.com",
		PasswordHash: "x",
		CreatedAt:    testTime,
	}
	err := db.Users().Create(context.Background(), dup)
	if !repository.IsUnique(err, "users", "email") {
		t.Fatalf("Create() error = %v, want unique violation on users.email", err)
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createUser(t, db, "alice")

	dup := &model.User{Username: "alice", Email: "new@example.com", PasswordHash: "x", CreatedAt: testTime}
	err := db.Users().Create(context.Background(), dup)
	if !repository.IsUnique(err, "users", "username") {
		t.Fatalf("Create() error = %v, want unique violation on users.username", err)
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createUser(t, db, "alice")

	got, err := db.Users().GetByEmail(context.Background(), "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %d, want %d", got.ID, created.ID)
	}
	if got.PasswordHash != created.PasswordHash {
		t.Error("GetByEmail() must return the stored hash for authentication")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), 42)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestUserDelete_CascadesToJobs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	job := createJob(t, db, alice.ID, "Acme", "Engineer")

	if err := db.Users().Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Jobs().GetOwned(ctx, alice.ID, job.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("job survived its owner: err = %v", err)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Delete(context.Background(), 7)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
