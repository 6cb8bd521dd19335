package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/auth"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/preprocess"
	"github.com/sakif/resumatch/internal/service"
	"github.com/sakif/resumatch/internal/session"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart envelope.
const multipartOverhead = 1 << 20

// Resumes is the part of service.ResumeService the handlers need.
type Resumes interface {
	Upload(ctx context.Context, userID int64, fileName string, data []byte) (*service.UploadResult, error)
	List(ctx context.Context, userID int64, offset, limit int) (*service.Page, error)
	Prepare(ctx context.Context, userID, resumeID int64) (*model.Resume, preprocess.Payload, error)
	Delete(ctx context.Context, userID, resumeID int64) error
}

// ResumeHandler manages the caller's résumés and which one is loaded.
//
// The loaded résumé is remembered in a cookie (see session.SelectResume).
// It changes on upload, on "use", and is cleared when that résumé is deleted
// or fails to preprocess.
type ResumeHandler struct {
	resumes   Resumes
	cookie    session.CookieConfig
	maxUpload int64
	logger    *slog.Logger
}

// NewResumeHandler creates a ResumeHandler. maxUpload is the largest file
// accepted, in bytes.
func NewResumeHandler(resumes Resumes, cookie session.CookieConfig, maxUpload int64, logger *slog.Logger) *ResumeHandler {
	if maxUpload <= 0 {
		maxUpload = service.DefaultMaxUploadMB << 20
	}
	return &ResumeHandler{
		resumes:   resumes,
		cookie:    cookie,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type uploadResponse struct {
	Resume  model.ResumeSummary `json:"resume"`
	Created bool                `json:"created"`
}

// HandleUpload stores an uploaded PDF and loads it.
//
// HTTP: POST /api/resumes (multipart/form-data, field "resume")
// RESPONSE: 201 for a new row, 200 when the identical file was already stored.
//
// The row is kept even when preprocessing fails; the client gets the
// preprocess error and nothing is loaded.
func (h *ResumeHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	file, header, err := r.FormFile("resume")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, apperror.ValidationFailed("resume",
				"file must be "+strconv.FormatInt(h.maxUpload, 10)+" bytes or smaller"))
			return
		}
		writeError(w, h.logger, apperror.ValidationFailed("resume", "Please upload a PDF file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("resume", "Could not read the uploaded file"))
		return
	}

	result, err := h.resumes.Upload(r.Context(), userID, header.Filename, data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, _, err := h.resumes.Prepare(r.Context(), userID, result.Resume.ID); err != nil {
		session.ClearSelection(w, h.cookie)
		writeError(w, h.logger, err)
		return
	}
	session.SelectResume(w, result.Resume.ID, h.cookie)

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, uploadResponse{Resume: result.Resume, Created: result.Created})
}

type listResponse struct {
	Items      []model.ResumeSummary `json:"items"`
	Offset     int                   `json:"offset"`
	Limit      int                   `json:"limit"`
	NextOffset *int                  `json:"next_offset"`
}

// HandleList returns one page of the caller's résumés.
//
// HTTP: GET /api/resumes?offset=0&limit=10
func (h *ResumeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.resumes.List(r.Context(), userID, offset, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []model.ResumeSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Offset:     page.Offset,
		Limit:      page.Limit,
		NextOffset: page.NextOffset,
	})
}

// HandleUse loads a previously uploaded résumé.
//
// HTTP: POST /api/resumes/{id}/use
func (h *ResumeHandler) HandleUse(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resume, _, err := h.resumes.Prepare(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, apperror.ErrPreprocess) {
			session.ClearSelection(w, h.cookie)
		}
		writeError(w, h.logger, err)
		return
	}
	session.SelectResume(w, resume.ID, h.cookie)

	writeJSON(w, http.StatusOK, model.ResumeSummary{
		ID:         resume.ID,
		FileName:   resume.FileName,
		UploadedAt: resume.UploadedAt,
	})
}

// HandleDelete removes one of the caller's résumés.
//
// HTTP: DELETE /api/resumes/{id}
// Deleting the loaded résumé also unloads it.
func (h *ResumeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated())
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.resumes.Delete(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if selected, ok := session.SelectedResume(r); ok && selected == id {
		session.ClearSelection(w, h.cookie)
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "resume ID must be a positive integer")
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter. Absent
// means 0, which the service turns into its default.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}
