// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take interfaces (repository.ResumeRepository, Preparer, ...) so
// tests can hand them in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/cache"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/preprocess"
	"github.com/sakif/resumatch/internal/repository"
)

const (
	DefaultPageSize    = 10
	MaxPageSize        = 100
	MaxFileNameLength  = 255
	DefaultMaxUploadMB = 10
)

// Preparer derives the model payload from PDF bytes.
// *preprocess.Preprocessor implements it.
type Preparer interface {
	Prepare(ctx context.Context, data []byte) (preprocess.Payload, error)
}

// ResumeService handles uploads, listing, selection and deletion of résumés.
//
// Reads (List, Fetch) are memoized. Every successful write drops the
// affected entries, so a cached read never outlives the data behind it.
type ResumeService struct {
	repo     repository.ResumeRepository
	prep     Preparer
	memo     *cache.Memo
	maxBytes int64
	logger   *slog.Logger
}

// NewResumeService creates a ResumeService. maxBytes <= 0 means
// DefaultMaxUploadMB.
func NewResumeService(repo repository.ResumeRepository, prep Preparer, memo *cache.Memo, maxBytes int64, logger *slog.Logger) *ResumeService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadMB << 20
	}
	return &ResumeService{
		repo:     repo,
		prep:     prep,
		memo:     memo,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// UploadResult describes the stored row after an upload.
type UploadResult struct {
	Resume model.ResumeSummary
	// Created is false when an identical upload already existed.
	Created bool
}

// Page is one slice of a user's résumé list.
type Page struct {
	Items  []model.ResumeSummary
	Offset int
	Limit  int
	// NextOffset is set when the page was full, i.e. there may be more.
	NextOffset *int
}

// Upload validates and stores a PDF for userID. Uploading the same name
// and bytes twice keeps one row and reports Created=false.
func (s *ResumeService) Upload(ctx context.Context, userID int64, fileName string, data []byte) (*UploadResult, error) {
	fileName = strings.TrimSpace(filepath.Base(strings.ReplaceAll(fileName, `\`, "/")))

	if len(data) == 0 {
		return nil, apperror.ValidationFailed("resume", "Uploaded file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperror.ValidationFailed("resume",
			fmt.Sprintf("file must be %d bytes or smaller", s.maxBytes))
	}
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, apperror.ValidationFailed("resume", "file name is required")
	}
	if len(fileName) > MaxFileNameLength {
		return nil, apperror.ValidationFailed("resume",
			fmt.Sprintf("file name must be %d characters or less", MaxFileNameLength))
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, apperror.ValidationFailed("resume", "only PDF files are accepted")
	}

	resume := &model.Resume{
		UserID:   userID,
		FileName: fileName,
		FileData: data,
	}

	created, err := s.repo.SaveResume(ctx, resume)
	if err != nil {
		s.logger.Error("failed to save resume",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving resume: %w", err)
	}

	if created {
		s.invalidateLists(userID)
		s.logger.Info("resume uploaded",
			slog.Int64("userID", userID),
			slog.Int64("resumeID", resume.ID),
			slog.Int("bytes", len(data)),
		)
	} else {
		s.logger.Info("duplicate resume upload ignored",
			slog.Int64("userID", userID),
			slog.Int64("resumeID", resume.ID),
		)
	}

	return &UploadResult{
		Resume: model.ResumeSummary{
			ID:         resume.ID,
			FileName:   resume.FileName,
			UploadedAt: resume.UploadedAt,
		},
		Created: created,
	}, nil
}

// List returns one page of userID's résumés in upload order.
// limit is clamped to 1..MaxPageSize (default DefaultPageSize); a negative
// offset is treated as zero.
func (s *ResumeService) List(ctx context.Context, userID int64, offset, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("%s%d:%d:%d", listPrefix, userID, offset, limit)
	items, err := cache.Do(s.memo, key, func() ([]model.ResumeSummary, error) {
		return s.repo.ListResumes(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	})
	if err != nil {
		s.logger.Error("failed to list resumes",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing resumes: %w", err)
	}

	page := &Page{Items: items, Offset: offset, Limit: limit}
	if len(items) == limit {
		next := offset + limit
		page.NextOffset = &next
	}
	return page, nil
}

// Fetch returns a résumé owned by userID, blob included. Another user's
// résumé is reported as not found. The returned value may be shared with
// the cache and must not be modified.
func (s *ResumeService) Fetch(ctx context.Context, userID, resumeID int64) (*model.Resume, error) {
	if resumeID <= 0 {
		return nil, apperror.ValidationFailed("id", "resume ID must be positive")
	}

	resume, err := cache.Do(s.memo, fetchKey(resumeID), func() (*model.Resume, error) {
		return s.repo.GetResume(ctx, resumeID)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching resume %d: %w", resumeID, err)
	}

	if resume.UserID != userID {
		s.logger.Warn("resume access by non-owner",
			slog.Int64("userID", userID),
			slog.Int64("resumeID", resumeID),
		)
		return nil, apperror.NotFound("resume", strconv.FormatInt(resumeID, 10))
	}

	return resume, nil
}

// Prepare fetches a résumé owned by userID and derives its model payload.
func (s *ResumeService) Prepare(ctx context.Context, userID, resumeID int64) (*model.Resume, preprocess.Payload, error) {
	resume, err := s.Fetch(ctx, userID, resumeID)
	if err != nil {
		return nil, preprocess.Payload{}, err
	}

	payload, err := s.prep.Prepare(ctx, resume.FileData)
	if err != nil {
		return resume, preprocess.Payload{}, err
	}
	return resume, payload, nil
}

// Delete removes a résumé owned by userID. Deleting another user's résumé,
// or one that does not exist, returns apperror.ErrNotFound.
func (s *ResumeService) Delete(ctx context.Context, userID, resumeID int64) error {
	if resumeID <= 0 {
		return apperror.ValidationFailed("id", "resume ID must be positive")
	}

	// Ownership is checked against the store, not the memo.
	resume, err := s.repo.GetResume(ctx, resumeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("fetching resume %d: %w", resumeID, err)
	}
	if resume.UserID != userID {
		s.logger.Warn("resume delete by non-owner",
			slog.Int64("userID", userID),
			slog.Int64("resumeID", resumeID),
		)
		return apperror.NotFound("resume", strconv.FormatInt(resumeID, 10))
	}

	if err := s.repo.DeleteResume(ctx, resumeID); err != nil {
		s.logger.Error("failed to delete resume",
			slog.Int64("resumeID", resumeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting resume: %w", err)
	}

	s.memo.Delete(fetchKey(resumeID))
	s.invalidateLists(userID)

	s.logger.Info("resume deleted",
		slog.Int64("userID", userID),
		slog.Int64("resumeID", resumeID),
	)
	return nil
}

const (
	listPrefix  = "resumes:list:"
	fetchPrefix = "resumes:get:"
)

func fetchKey(id int64) string {
	return fetchPrefix + strconv.FormatInt(id, 10)
}

func (s *ResumeService) invalidateLists(userID int64) {
	s.memo.DeletePrefix(listPrefix + strconv.FormatInt(userID, 10) + ":")
}
