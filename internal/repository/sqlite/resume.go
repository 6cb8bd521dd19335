package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/repository"
)

var _ repository.ResumeRepository = (*DB)(nil)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// SaveResume stores an uploaded résumé unless the same user already stored a
// byte-identical file under the same name.
//
// DEDUP:
// The existence check and the insert are ONE statement
// (INSERT ... SELECT ... WHERE NOT EXISTS). SQLite runs a single statement
// atomically, so two identical uploads racing each other still produce one
// row.
//
// On return resume.ID and resume.UploadedAt describe the stored row: the new
// one when inserted is true, the already-existing one otherwise.
func (db *DB) SaveResume(ctx context.Context, resume *model.Resume) (bool, error) {
	if resume.UploadedAt.IsZero() {
		resume.UploadedAt = time.Now()
	}
	uploadedAt := resume.UploadedAt.Format(uploadedAtLayout)

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO resumes (user_id, file_name, file_data, uploaded_at)
		 SELECT ?, ?, ?, ?
		 WHERE NOT EXISTS (
		     SELECT 1 FROM resumes
		     WHERE user_id = ? AND file_name = ? AND file_data = ?
		 )`,
		resume.UserID, resume.FileName, resume.FileData, uploadedAt,
		resume.UserID, resume.FileName, resume.FileData,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: saving resume for user %d: %w", resume.UserID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	if rowsAffected == 1 {
		id, err := result.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("sqlite: reading new resume id: %w", err)
		}
		resume.ID = id
		resume.UploadedAt = parseUploadedAt(uploadedAt)
		return true, nil
	}

	// Duplicate: report the row that is already there.
	var existingAt string
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, uploaded_at FROM resumes
		 WHERE user_id = ? AND file_name = ? AND file_data = ?
		 ORDER BY id LIMIT 1`,
		resume.UserID, resume.FileName, resume.FileData,
	).Scan(&resume.ID, &existingAt)
	if err != nil {
		return false, fmt.Errorf("sqlite: looking up existing resume: %w", err)
	}
	resume.UploadedAt = parseUploadedAt(existingAt)

	return false, nil
}

// ListResumes pages through a user's résumés in insertion order.
//
// Limit defaults to 10 and is capped at 100; a negative offset is treated as
// zero. Advancing Offset by Limit on each call visits every row exactly once
// as long as nothing is inserted or deleted in between.
func (db *DB) ListResumes(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.ResumeSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, file_name, uploaded_at
		 FROM resumes
		 WHERE user_id = ?
		 ORDER BY id
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing resumes for user %d: %w", userID, err)
	}
	defer rows.Close()

	summaries := make([]model.ResumeSummary, 0, limit)
	for rows.Next() {
		var (
			s          model.ResumeSummary
			fileName   sql.NullString
			uploadedAt sql.NullString
		)
		if err := rows.Scan(&s.ID, &fileName, &uploadedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning resume row: %w", err)
		}
		s.FileName = fileName.String
		s.UploadedAt = parseUploadedAt(uploadedAt.String)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating resumes: %w", err)
	}

	return summaries, nil
}

// GetResume returns the full row, blob included.
// Returns apperror.ErrNotFound if no résumé has that id.
func (db *DB) GetResume(ctx context.Context, id int64) (*model.Resume, error) {
	var (
		r          model.Resume
		userID     sql.NullInt64
		fileName   sql.NullString
		uploadedAt sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, file_name, file_data, uploaded_at
		 FROM resumes WHERE id = ?`,
		id,
	).Scan(&r.ID, &userID, &fileName, &r.FileData, &uploadedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("resume", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting resume %d: %w", id, err)
	}
	r.UserID = userID.Int64
	r.FileName = fileName.String
	r.UploadedAt = parseUploadedAt(uploadedAt.String)

	return &r, nil
}

// DeleteResume removes a résumé by id. There is no ownership check here;
// the service layer authorises the caller first.
func (db *DB) DeleteResume(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM resumes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting resume %d: %w", id, err)
	}
	return nil
}

// parseUploadedAt reads the stored local-time text. Unparseable values come
// back as the zero time rather than failing the whole listing.
func parseUploadedAt(s string) time.Time {
	t, err := time.ParseInLocation(uploadedAtLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
