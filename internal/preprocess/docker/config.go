package docker

import (
	"time"
)

// Config holds the configuration for sandboxed rendering.
type Config struct {
	// Image must provide pdftoppm and tail.
	Image string
	// MemoryLimit is the container memory cap in bytes.
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout bounds a single render.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
	// DPI is the rasterisation resolution.
	DPI int
}

// DefaultConfig provides defaults for a poppler sandbox.
func DefaultConfig() Config {
	return Config{
		Image:       "minidocks/poppler:latest",
		MemoryLimit: 256 * 1024 * 1024,
		CPULimit:    1,
		Timeout:     20 * time.Second,
		PoolSize:    2,
		DPI:         200,
	}
}
