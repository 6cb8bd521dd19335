package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/resumatch/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("email", "bad"), http.StatusBadRequest, "validation_error"},
		{"credentials", apperror.InvalidCredentials(), http.StatusUnauthorized, "unauthorized"},
		{"not found", apperror.NotFound("resume", "3"), http.StatusNotFound, "not_found"},
		{"duplicate email", apperror.DuplicateEmail(), http.StatusConflict, "conflict"},
		{"no resume", apperror.NoResumeLoaded(), http.StatusPreconditionFailed, "precondition_failed"},
		{"preprocess", apperror.Preprocess(errors.New("no pages"), "bad pdf"), http.StatusUnprocessableEntity, "preprocess_error"},
		{"upstream", apperror.Upstream("assessment failed", errors.New("quota")), http.StatusBadGateway, "upstream_error"},
		{"store failure", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.NotContains(t, body.Message, "sqlite")
		})
	}
}

func TestWriteError_DuplicateEmailDoesNotEchoAddress(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, slog.New(slog.NewTextHandler(io.Discard, nil)), apperror.DuplicateEmail())

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.NotContains(t, rr.Body.String(), "@")
}
