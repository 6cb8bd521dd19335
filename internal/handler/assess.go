package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/assess"
	"github.com/sakif/resumatch/internal/auth"
	"github.com/sakif/resumatch/internal/session"
)

// maxAssessBody bounds the job-description request body.
const maxAssessBody = 256 << 10

// Assessments is the part of service.AssessService the handler needs.
type Assessments interface {
	Assess(ctx context.Context, userID, resumeID int64, jobDescription string, mode assess.Mode) (string, error)
}

// AssessHandler runs an assessment of the loaded résumé.
type AssessHandler struct {
	assessments Assessments
	logger      *slog.Logger
}

func NewAssessHandler(assessments Assessments, logger *slog.Logger) *AssessHandler {
	return &AssessHandler{assessments: assessments, logger: logger}
}

type assessRequest struct {
	JobDescription string `json:"job_description"`
}

type assessResponse struct {
	Mode     string `json:"mode"`
	Response string `json:"response"`
}

// HandleAssess evaluates the loaded résumé against a job description.
//
// HTTP: POST /api/assess/{mode}   mode is "review" or "match"
// REQUEST BODY: {"job_description": "..."}
// RESPONSE: 200 {"mode": "review", "response": "<model text, verbatim>"}
//
// Without a loaded résumé the answer is 412 and the model is not called.
func (h *AssessHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	mode, err := assess.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, h.logger, apperror.NotFound("assessment mode", chi.URLParam(r, "mode")))
		return
	}

	var req assessRequest
	if err := decodeJSON(w, r, maxAssessBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resumeID, _ := session.SelectedResume(r)

	text, err := h.assessments.Assess(r.Context(), userID, resumeID, req.JobDescription, mode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, assessResponse{Mode: mode.String(), Response: text})
}
