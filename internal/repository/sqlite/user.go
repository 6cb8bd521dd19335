package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user and sets user.ID from the autoincrement key.
//
// The UNIQUE constraint on email is the duplicate check: a second insert for
// the same email fails inside SQLite before anything is written, so the table
// is left exactly as it was.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, password) VALUES (?, ?)`,
		user.Email,
		user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail()
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetUserByEmail looks a user up by exact email.
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	var hash sql.NullString

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	u.PasswordHash = hash.String

	return &u, nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	var hash sql.NullString

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	u.PasswordHash = hash.String

	return &u, nil
}
