package sqlite

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// UserDB stores accounts. It shares the engine (and its lock) with JobDB.
type UserDB struct {
	db *DB
}

func (db *DB) Users() *UserDB { return &UserDB{db: db} }

// Create inserts user and sets user.ID. CreatedAt must already be set by the
// caller; the database never picks timestamps.
//
// Duplicates are left to the UNIQUE constraints so that the check and the
// insert cannot race: the error is a *ConstraintViolation naming the column.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	q := squirrel.Insert("users").
		Columns("username", "email", "password_hash", "created_at").
		Values(user.Username, user.Email, user.PasswordHash, user.CreatedAt)

	return u.db.Mutate(ctx, func(tx *sqlx.Tx) error {
		id, err := insertx(ctx, tx, q)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
		}
		user.ID = id
		return nil
	})
}

// GetByID returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return u.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail matches the email case-insensitively (the column is
// COLLATE NOCASE) after trimming it.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.getBy(ctx, squirrel.Eq{"email": model.NormalizeEmail(email)})
}

func (u *UserDB) getBy(ctx context.Context, where squirrel.Sqlizer) (*model.User, error) {
	var user model.User
	q := squirrel.Select(userColumns...).From("users").Where(where)
	if err := u.db.Get(ctx, &user, q); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	return &user, nil
}

// Delete removes the user. Their jobs go with them through ON DELETE CASCADE.
func (u *UserDB) Delete(ctx context.Context, id int64) error {
	return u.db.Mutate(ctx, func(tx *sqlx.Tx) error {
		n, err := execx(ctx, tx, squirrel.Delete("users").Where(squirrel.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
		}
		if n == 0 {
			return apperror.NotFound("User")
		}
		return nil
	})
}
