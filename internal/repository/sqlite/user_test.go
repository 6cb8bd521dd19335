package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/model"
)

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "pbkdf2:sha256:1$salt$00"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "a@x.com", PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
}

func TestCreateUser_AssignsIncreasingIDs(t *testing.T) {
	db := newTestDB(t)

	first := createTestUser(t, db, "one@x.com")
	second := createTestUser(t, db, "two@x.com")

	if second.ID <= first.ID {
		t.Errorf("second ID %d should be greater than first ID %d", second.ID, first.ID)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	original := createTestUser(t, db, "dup@x.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "dup@x.com", PasswordHash: "other"})
	if err == nil {
		t.Fatal("CreateUser() should have returned an error for a duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}

	// The failed insert must not have changed anything.
	if got := countRows(t, db, "users"); got != 1 {
		t.Errorf("users = %d, want 1", got)
	}
	found, err := db.GetUserByEmail(context.Background(), "dup@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != original.ID || found.PasswordHash != original.PasswordHash {
		t.Errorf("stored user changed after failed duplicate insert: %+v", found)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "find@x.com")

	found, err := db.GetUserByEmail(context.Background(), "find@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, created.PasswordHash)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "byid@x.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Email != "byid@x.com" {
		t.Errorf("Email = %q, want %q", found.Email, "byid@x.com")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 4242)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
