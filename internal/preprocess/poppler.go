package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultDPI is the rasterisation resolution.
const DefaultDPI = 200

// PopplerArgs returns the pdftoppm arguments that read a PDF on stdin and
// write page 1 as a single PNG on stdout.
func PopplerArgs(dpi int) []string {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return []string{"-png", "-singlefile", "-f", "1", "-l", "1", "-r", strconv.Itoa(dpi), "-"}
}

// DecodePNG decodes renderer output, rejecting empty output with a clear
// error.
func DecodePNG(out []byte) (image.Image, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("renderer produced no output")
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decoding rendered page: %w", err)
	}
	return img, nil
}

// PopplerRenderer runs a local pdftoppm binary.
type PopplerRenderer struct {
	bin string
	dpi int
}

// NewPopplerRenderer creates a renderer. bin defaults to "pdftoppm" on PATH.
func NewPopplerRenderer(bin string, dpi int) *PopplerRenderer {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &PopplerRenderer{bin: bin, dpi: dpi}
}

func (r *PopplerRenderer) RenderFirstPage(ctx context.Context, pdf []byte) (image.Image, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, r.bin, PopplerArgs(r.dpi)...)
	cmd.Stdin = bytes.NewReader(pdf)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", r.bin, err, strings.TrimSpace(stderr.String()))
	}

	return DecodePNG(stdout.Bytes())
}
