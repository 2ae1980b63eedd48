package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "vision", cfg.Recognition.Backend)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 20*time.Second, cfg.Retry.DefaultQuotaWait)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace: /data/run1
render:
  dpi: 300
  grayscale: true
retry:
  maxAttempts: 5
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/run1", cfg.Workspace)
	assert.Equal(t, 300.0, cfg.Render.DPI)
	assert.True(t, cfg.Render.Grayscale)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	// Untouched values keep their defaults.
	assert.Equal(t, 85, cfg.Render.JPEGQuality)
}

func TestLoadEnvOverridesAndSecrets(t *testing.T) {
	t.Setenv("FOLIO_WORKSPACE", "/data/env")
	t.Setenv("FOLIO_API_KEY", "sk-test")
	t.Setenv("FOLIO_MAX_ATTEMPTS", "4")
	t.Setenv("FOLIO_RECOGNITION_BACKEND", "tesseract")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/env", cfg.Workspace)
	assert.Equal(t, "sk-test", cfg.Recognition.APIKey)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, "tesseract", cfg.Recognition.Backend)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("FOLIO_STORAGE_BACKEND", "ftp")

	_, err := Load("")
	assert.ErrorContains(t, err, "unsupported storage backend")
}

func TestLoadRejectsBadRetryConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  maxAttempts: 0\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "maxAttempts")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
