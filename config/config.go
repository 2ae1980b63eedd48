package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/inkworks/folio/pkg/logger"
)

// Config is the single explicit configuration structure handed to the
// pipeline at construction. Nothing else reads the environment after Load.
type Config struct {
	Workspace string `yaml:"workspace"` // directory (or object key prefix) holding fragments and the manifest

	Storage     StorageConfig     `yaml:"storage"`
	Render      RenderConfig      `yaml:"render"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Retry       RetryConfig       `yaml:"retry"`
	Notify      NotifyConfig      `yaml:"notify"`
	Status      StatusConfig      `yaml:"status"`
	Logger      logger.Config     `yaml:"logger"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // "local", "minio" or "s3"

	Minio MinioConfig `yaml:"minio"`
	S3    S3Config    `yaml:"s3"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"-"`
	SecretKey  string `yaml:"-"`
	UseSSL     bool   `yaml:"useSSL"`
	Region     string `yaml:"region"`
	BucketName string `yaml:"bucket"`
}

type S3Config struct {
	BucketName string `yaml:"bucket"`
	Region     string `yaml:"region"`
	AccessKey  string `yaml:"-"`
	SecretKey  string `yaml:"-"`
}

type RenderConfig struct {
	DPI         float64 `yaml:"dpi"`
	JPEGQuality int     `yaml:"jpegQuality"`
	Grayscale   bool    `yaml:"grayscale"`
	MaxWidth    int     `yaml:"maxWidth"` // 0 disables downscaling
}

type RecognitionConfig struct {
	Backend     string        `yaml:"backend"` // "vision" or "tesseract"
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"` // env only, never from file
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	Languages   []string      `yaml:"languages"` // tesseract backend only
}

type RetryConfig struct {
	MaxAttempts      int           `yaml:"maxAttempts"`
	DefaultQuotaWait time.Duration `yaml:"defaultQuotaWait"`
}

type NotifyConfig struct {
	WebhookURL string        `yaml:"-"` // env only
	AuthToken  string        `yaml:"-"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workspace: "workspace",
		Storage: StorageConfig{
			Backend: "local",
		},
		Render: RenderConfig{
			DPI:         200,
			JPEGQuality: 85,
			Grayscale:   false,
			MaxWidth:    0,
		},
		Recognition: RecognitionConfig{
			Backend:     "vision",
			Endpoint:    "https://openrouter.ai/api/v1/chat/completions",
			Model:       "google/gemini-2.5-flash",
			Timeout:     120 * time.Second,
			Temperature: 0.1,
			Languages:   []string{"eng"},
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			DefaultQuotaWait: 20 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Status: StatusConfig{
			Enabled: false,
			Addr:    ":8090",
		},
		Logger: logger.Config{
			Level:       "info",
			Encoding:    "console",
			OutputPaths: []string{"stdout", "logs/folio.log"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment. A .env file in the working directory is loaded first if
// present; secrets only ever come from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FOLIO_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("FOLIO_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("FOLIO_RECOGNITION_BACKEND"); v != "" {
		c.Recognition.Backend = v
	}
	if v := os.Getenv("FOLIO_RECOGNITION_ENDPOINT"); v != "" {
		c.Recognition.Endpoint = v
	}
	if v := os.Getenv("FOLIO_RECOGNITION_MODEL"); v != "" {
		c.Recognition.Model = v
	}
	if v := os.Getenv("FOLIO_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}

	// Secrets are environment-only.
	c.Recognition.APIKey = os.Getenv("FOLIO_API_KEY")
	c.Notify.WebhookURL = os.Getenv("FOLIO_WEBHOOK_URL")
	c.Notify.AuthToken = os.Getenv("FOLIO_WEBHOOK_TOKEN")

	c.Storage.Minio.Endpoint = envOr("MINIO_ENDPOINT", c.Storage.Minio.Endpoint)
	c.Storage.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	c.Storage.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	c.Storage.Minio.Region = envOr("MINIO_REGION", c.Storage.Minio.Region)
	c.Storage.Minio.BucketName = envOr("MINIO_BUCKET_NAME", c.Storage.Minio.BucketName)

	c.Storage.S3.BucketName = envOr("AWS_S3_BUCKET_NAME", c.Storage.S3.BucketName)
	c.Storage.S3.Region = envOr("AWS_REGION", c.Storage.S3.Region)
	c.Storage.S3.AccessKey = os.Getenv("AWS_ACCESS_KEY")
	c.Storage.S3.SecretKey = os.Getenv("AWS_SECRET_KEY")
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "local", "minio", "s3":
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}
	switch c.Recognition.Backend {
	case "vision", "tesseract":
	default:
		return fmt.Errorf("unsupported recognition backend: %q", c.Recognition.Backend)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.maxAttempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.DefaultQuotaWait <= 0 {
		return fmt.Errorf("retry.defaultQuotaWait must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
