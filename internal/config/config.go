// Package config loads the application configuration.
//
// Sources, lowest to highest priority:
//
//	built-in defaults → config file (YAML) → .env → RESUMATCH_* env vars → flags
//
// A key like "genai.model" is read from RESUMATCH_GENAI_MODEL. The API key
// is also accepted as plain GENAI_API_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "RESUMATCH"

	RendererLocal  = "local"
	RendererDocker = "docker"

	minSecretLength = 16
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	GenAI      GenAIConfig      `mapstructure:"genai"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	Secret       string        `mapstructure:"secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

type GenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PreprocessConfig struct {
	Renderer    string       `mapstructure:"renderer"`
	DPI         int          `mapstructure:"dpi"`
	JPEGQuality int          `mapstructure:"jpeg_quality"`
	Pdftoppm    string       `mapstructure:"pdftoppm"`
	Docker      DockerConfig `mapstructure:"docker"`
}

type DockerConfig struct {
	Image    string        `mapstructure:"image"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "data/users.db")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.model", "gemini-1.5-flash")
	v.SetDefault("genai.timeout", 60*time.Second)
	v.SetDefault("preprocess.renderer", RendererLocal)
	v.SetDefault("preprocess.dpi", 200)
	v.SetDefault("preprocess.jpeg_quality", 75)
	v.SetDefault("preprocess.pdftoppm", "pdftoppm")
	v.SetDefault("preprocess.docker.image", "minidocks/poppler:latest")
	v.SetDefault("preprocess.docker.pool_size", 2)
	v.SetDefault("preprocess.docker.timeout", 20*time.Second)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("upload.max_bytes", int64(10<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// New returns a viper instance with defaults and environment binding in
// place. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The original deployment only sets GENAI_API_KEY.
	_ = v.BindEnv("genai.api_key", envPrefix+"_GENAI_API_KEY", "GENAI_API_KEY")

	return v
}

// Load reads .env (if present), then file (if non-empty), and decodes the
// result. It does not validate; see Validate.
func Load(v *viper.Viper, file string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if len(c.Auth.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("auth.secret must be at least %d characters (set %s_AUTH_SECRET)", minSecretLength, envPrefix))
	}
	if c.GenAI.APIKey == "" {
		errs = append(errs, errors.New("genai.api_key is required (set GENAI_API_KEY)"))
	}
	switch c.Preprocess.Renderer {
	case RendererLocal, RendererDocker:
	default:
		errs = append(errs, fmt.Errorf("preprocess.renderer must be %q or %q, got %q", RendererLocal, RendererDocker, c.Preprocess.Renderer))
	}
	if c.Preprocess.JPEGQuality < 1 || c.Preprocess.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("preprocess.jpeg_quality %d out of range 1..100", c.Preprocess.JPEGQuality))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}

	return errors.Join(errs...)
}
