// Package assess asks a Gemini model to evaluate a résumé image against a
// job description.
//
// One assessment is one GenerateContent round trip. The request carries
// three parts in a fixed order: the job description, the résumé image, then
// the instruction for the selected Mode. The model's text comes back
// verbatim.
package assess

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/preprocess"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	DefaultTimeout = 60 * time.Second

	logPreviewChars = 200
)

// ModelClient is the slice of the GenAI SDK used here. *genai.Models
// satisfies it.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient creates a GenAI client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

type Orchestrator struct {
	models  ModelClient
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Orchestrator. Empty model and non-positive timeout fall
// back to DefaultModel and DefaultTimeout.
func New(models ModelClient, model string, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{models: models, model: model, timeout: timeout, logger: logger}
}

// Model reports the model name requests are sent to.
func (o *Orchestrator) Model() string {
	return o.model
}

// Assess runs one assessment.
//
// An empty payload is a precondition failure (no résumé loaded). Any model
// failure, including an empty answer, is returned as apperror.ErrUpstream
// with the message "assessment failed".
func (o *Orchestrator) Assess(ctx context.Context, jobDescription string, payload preprocess.Payload, mode Mode) (string, error) {
	if payload.Data == "" {
		return "", apperror.NoResumeLoaded()
	}

	instruction, err := mode.Instruction()
	if err != nil {
		return "", apperror.ValidationFailed("mode", err.Error())
	}

	image, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return "", apperror.Preprocess(preprocess.ErrDecodeFailure, "Error processing PDF file")
	}

	mimeType := payload.MIMEType
	if mimeType == "" {
		mimeType = preprocess.MIMEType
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: jobDescription},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			{Text: instruction},
		},
	}}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	o.logger.Debug("sending assessment",
		slog.String("model", o.model),
		slog.String("mode", mode.String()),
		slog.String("jobDescription", preview(jobDescription, logPreviewChars)),
		slog.Int("imageBytes", len(image)),
	)

	start := time.Now()
	resp, err := o.models.GenerateContent(callCtx, o.model, contents, nil)
	if err != nil {
		o.logger.Error("assessment request failed",
			slog.String("model", o.model),
			slog.String("mode", mode.String()),
			slog.String("error", err.Error()),
		)
		return "", apperror.Upstream("assessment failed", err)
	}

	text := responseText(resp)
	if text == "" {
		o.logger.Warn("assessment returned no text",
			slog.String("model", o.model),
			slog.String("mode", mode.String()),
		)
		return "", apperror.Upstream("assessment failed", errors.New("empty model response"))
	}

	o.logger.Info("assessment completed",
		slog.String("model", o.model),
		slog.String("mode", mode.String()),
		slog.Duration("duration", time.Since(start)),
		slog.Int("responseChars", len(text)),
	)
	o.logger.Debug("assessment response", slog.String("text", preview(text, logPreviewChars)))

	return text, nil
}

// responseText joins the text parts of the first candidate without
// trimming or separators.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// preview shortens s for log output.
func preview(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
