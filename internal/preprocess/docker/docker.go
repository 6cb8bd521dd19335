// Package docker renders PDFs with pdftoppm inside throwaway Docker
// containers, keeping the poppler parser away from the host. It implements
// preprocess.Renderer.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	imagetypes "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/resumatch/internal/preprocess"
)

var _ preprocess.Renderer = (*Renderer)(nil)

type Renderer struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New connects to the Docker daemon from the environment, pulls the image
// and starts the container pool.
func New(cfg Config, logger *slog.Logger) (*Renderer, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring renderer image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, imagetypes.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	// Drain to block until the pull completes.
	io.Copy(io.Discard, reader)
	reader.Close()
	logger.Info("renderer image is ready")

	r := &Renderer{
		cli:    cli,
		config: cfg,
		logger: logger,
		pool:   NewPool(cli, cfg, logger),
	}
	r.pool.Start()

	return r, nil
}

// Close stops the pool and the docker client.
func (r *Renderer) Close() error {
	r.pool.Stop()
	return r.cli.Close()
}

// RenderFirstPage streams pdf into `pdftoppm` over the exec's stdin and
// decodes the PNG it writes to stdout.
func (r *Renderer) RenderFirstPage(ctx context.Context, pdf []byte) (image.Image, error) {
	containerID, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container from pool: %w", err)
	}
	defer r.pool.Release(containerID)

	renderCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	execResp, err := r.cli.ContainerExecCreate(renderCtx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          append([]string{"pdftoppm"}, preprocess.PopplerArgs(r.config.DPI)...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := r.cli.ContainerExecAttach(renderCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	go func() {
		_, _ = attachResp.Conn.Write(pdf)
		_ = attachResp.CloseWrite()
	}()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("reading render output: %w", err)
		}
	case <-renderCtx.Done():
		return nil, fmt.Errorf("render timed out: %w", renderCtx.Err())
	}

	inspect, err := r.cli.ContainerExecInspect(renderCtx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return nil, fmt.Errorf("pdftoppm exited %d: %s", inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}

	return preprocess.DecodePNG(stdout.Bytes())
}
