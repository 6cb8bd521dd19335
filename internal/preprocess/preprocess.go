// Package preprocess turns an uploaded PDF into the image payload the
// assessment model reads: the first page, rasterised, JPEG-encoded and
// base64-wrapped.
//
// PIPELINE:
//
//	bytes ──► page count (ledongthuc/pdf) ──► Renderer (pdftoppm) ──► JPEG ──► base64
//
// Rendering is delegated to a Renderer so the same pipeline can shell out to
// a local poppler install or run pdftoppm inside a Docker sandbox.
//
// Results are memoized by the SHA-256 of the input bytes. The pipeline is
// deterministic, so a cached payload is indistinguishable from a fresh one.
package preprocess

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/cache"
)

// MIMEType is the media type of every Payload.
const MIMEType = "image/jpeg"

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 75

// Failure kinds. Prepare returns them wrapped in an *apperror.AppError, so
// callers test with errors.Is.
var (
	ErrEmptyInput    = errors.New("preprocess: empty input")
	ErrNoPages       = errors.New("preprocess: no renderable pages")
	ErrDecodeFailure = errors.New("preprocess: decode failure")
)

// Payload is the inline image sent to the model.
type Payload struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // standard base64
}

// Renderer rasterises page 1 of a PDF.
type Renderer interface {
	RenderFirstPage(ctx context.Context, pdf []byte) (image.Image, error)
}

type Preprocessor struct {
	renderer Renderer
	memo     *cache.Memo
	quality  int
	logger   *slog.Logger
}

// New creates a Preprocessor. quality outside 1..100 means DefaultQuality.
func New(renderer Renderer, memo *cache.Memo, quality int, logger *slog.Logger) *Preprocessor {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Preprocessor{
		renderer: renderer,
		memo:     memo,
		quality:  quality,
		logger:   logger,
	}
}

// Prepare converts PDF bytes into a Payload.
//
// Errors:
//   - ErrEmptyInput    data is empty
//   - ErrNoPages       the document parses but has zero pages
//   - ErrDecodeFailure any rendering or encoding failure
//
// A cancelled ctx is returned as-is and not memoized.
func (p *Preprocessor) Prepare(ctx context.Context, data []byte) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, apperror.Preprocess(ErrEmptyInput, "The uploaded PDF file is empty")
	}

	sum := sha256.Sum256(data)
	key := "preprocess:" + hex.EncodeToString(sum[:])

	return cache.Do(p.memo, key, func() (Payload, error) {
		return p.prepare(ctx, data)
	})
}

func (p *Preprocessor) prepare(ctx context.Context, data []byte) (Payload, error) {
	// A parse failure here is not final: poppler reads files the pure-Go
	// parser rejects, so only a confident zero short-circuits.
	if n, err := countPages(data); err == nil && n == 0 {
		return Payload{}, apperror.Preprocess(ErrNoPages, "No images found in PDF file.")
	}

	img, err := p.renderer.RenderFirstPage(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return Payload{}, ctx.Err()
		}
		p.logger.Warn("rendering pdf failed", slog.String("error", err.Error()))
		return Payload{}, apperror.Preprocess(ErrDecodeFailure, "Error processing PDF file")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		p.logger.Warn("encoding jpeg failed", slog.String("error", err.Error()))
		return Payload{}, apperror.Preprocess(ErrDecodeFailure, "Error processing PDF file")
	}

	p.logger.Debug("pdf preprocessed",
		slog.Int("pdfBytes", len(data)),
		slog.Int("jpegBytes", buf.Len()),
	)

	return Payload{
		MIMEType: MIMEType,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// countPages reads the page tree. The parser panics on some malformed
// input; that is reported as an error.
func countPages(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
