package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/resumatch/internal/assess"
	"github.com/sakif/resumatch/internal/config"
	"github.com/sakif/resumatch/internal/preprocess"
	"github.com/sakif/resumatch/internal/preprocess/docker"
	"github.com/sakif/resumatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default 8080)")
	bindFlag(v, "server.port", serveCmd.Flags().Lookup("port"))
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.JSON)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}

	if err := ensureDir(cfg.Database.Path); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		return err
	}

	renderer, closeRenderer, err := newRenderer(cfg.Preprocess, logger)
	if err != nil {
		logger.Error("failed to create PDF renderer", slog.String("error", err.Error()))
		return err
	}
	defer closeRenderer()

	client, err := assess.NewClient(ctx, cfg.GenAI.APIKey)
	if err != nil {
		logger.Error("failed to create model client", slog.String("error", err.Error()))
		return err
	}

	srv, err := server.New(server.Config{
		Port:           cfg.Server.Port,
		DBPath:         cfg.Database.Path,
		SessionSecret:  cfg.Auth.Secret,
		SessionTTL:     cfg.Auth.SessionTTL,
		SecureCookie:   cfg.Auth.SecureCookie,
		Model:          cfg.GenAI.Model,
		ModelTimeout:   cfg.GenAI.Timeout,
		JPEGQuality:    cfg.Preprocess.JPEGQuality,
		CacheTTL:       cfg.Cache.TTL,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, server.Deps{
		Renderer: renderer,
		Models:   client.Models,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// newRenderer picks the first-page rasteriser. The docker renderer keeps a
// pool of sandbox containers that must be stopped on exit.
func newRenderer(cfg config.PreprocessConfig, logger *slog.Logger) (preprocess.Renderer, func(), error) {
	switch cfg.Renderer {
	case config.RendererDocker:
		dcfg := docker.DefaultConfig()
		if cfg.Docker.Image != "" {
			dcfg.Image = cfg.Docker.Image
		}
		if cfg.Docker.PoolSize > 0 {
			dcfg.PoolSize = cfg.Docker.PoolSize
		}
		if cfg.Docker.Timeout > 0 {
			dcfg.Timeout = cfg.Docker.Timeout
		}
		if cfg.DPI > 0 {
			dcfg.DPI = cfg.DPI
		}

		r, err := docker.New(dcfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("starting docker renderer: %w", err)
		}
		return r, func() { r.Close() }, nil

	default:
		logger.Info("rendering PDFs with local pdftoppm", slog.String("bin", cfg.Pdftoppm))
		return preprocess.NewPopplerRenderer(cfg.Pdftoppm, cfg.DPI), func() {}, nil
	}
}
