package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/assess"
	"github.com/sakif/resumatch/internal/preprocess"
)

// Assessor runs one model assessment. *assess.Orchestrator implements it.
type Assessor interface {
	Assess(ctx context.Context, jobDescription string, payload preprocess.Payload, mode assess.Mode) (string, error)
}

// AssessService assesses the caller's currently loaded résumé.
type AssessService struct {
	resumes  *ResumeService
	assessor Assessor
	logger   *slog.Logger
}

func NewAssessService(resumes *ResumeService, assessor Assessor, logger *slog.Logger) *AssessService {
	return &AssessService{resumes: resumes, assessor: assessor, logger: logger}
}

// Assess evaluates résumé resumeID against jobDescription.
//
// resumeID == 0 means nothing is loaded and yields apperror.NoResumeLoaded.
// A loaded résumé that has since been deleted is treated the same way.
func (s *AssessService) Assess(ctx context.Context, userID, resumeID int64, jobDescription string, mode assess.Mode) (string, error) {
	if resumeID <= 0 {
		return "", apperror.NoResumeLoaded()
	}

	_, payload, err := s.resumes.Prepare(ctx, userID, resumeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.NoResumeLoaded()
		}
		return "", err
	}

	return s.assessor.Assess(ctx, jobDescription, payload, mode)
}
