// Package repository declares the storage contracts the service layer uses.
// internal/repository/sqlite is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/resumatch/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the Credential Store's persistence side.
type UserRepository interface {
	// CreateUser inserts the user and sets user.ID. A duplicate email returns
	// an apperror.ErrConflict error and leaves the table unchanged.
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByEmail returns apperror.ErrNotFound for an unknown email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// ResumeRepository is the Resume Store's persistence side.
type ResumeRepository interface {
	// SaveResume inserts the row unless an identical (user_id, file_name,
	// file_data) row already exists. inserted reports which happened.
	SaveResume(ctx context.Context, resume *model.Resume) (inserted bool, err error)
	// ListResumes returns up to opts.Limit summaries for userID starting at
	// opts.Offset, in insertion order.
	ListResumes(ctx context.Context, userID int64, opts ListOptions) ([]model.ResumeSummary, error)
	// GetResume returns apperror.ErrNotFound when no row has the id.
	GetResume(ctx context.Context, id int64) (*model.Resume, error)
	// DeleteResume removes the row unconditionally. Deleting a missing id is
	// not an error.
	DeleteResume(ctx context.Context, id int64) error
}
