package model

import "time"

// Resume is one uploaded PDF owned by a user.
//
// Rows are created on upload and never mutated; the owner deletes them
// explicitly. For a given UserID no two rows share the same
// (FileName, FileData) pair.
type Resume struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	FileName   string    `json:"file_name"`
	FileData   []byte    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ResumeSummary is the listing projection of a Resume: (id, file_name,
// uploaded_at). The blob is only read by a single-item fetch.
type ResumeSummary struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}
