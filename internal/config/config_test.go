package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_MissingAPIKey(t *testing.T) {
	cfg, err := Load("", envOf(nil))
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Nil(t, cfg)
}

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	cfg, err := Load("", envOf(map[string]string{DefaultAPIKeyEnv: "  gsk_test  "}))
	require.NoError(t, err)
	assert.Equal(t, "gsk_test", cfg.Inference.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "llama-3.2-11b-vision-preview", cfg.Inference.Model)
	assert.Equal(t, float32(0.2), cfg.Inference.Temperature)
	assert.Equal(t, 400, cfg.Inference.MaxTokens)
	assert.Equal(t, "radiology_report.pdf", cfg.Report.Filename)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9090
  maxUploadBytes: 1024
inference:
  apiKeyEnv: RADIOLOGY_KEY
  model: llama-3.2-90b-vision-preview
  timeout: 15s
session:
  ttl: 5m
report:
  compress: false
`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(path, envOf(map[string]string{"RADIOLOGY_KEY": "secret"}))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "secret", cfg.Inference.APIKey)
	assert.Equal(t, "llama-3.2-90b-vision-preview", cfg.Inference.Model)
	assert.Equal(t, 15*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.False(t, cfg.Report.Compress)
	// untouched fields keep their defaults
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Inference.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envOf(map[string]string{DefaultAPIKeyEnv: "gsk_test"}))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"filename", "report:\n  filename: report.txt\n", "report.filename"},
		{"zero temperature", "inference:\n  temperature: 0\n", "inference.temperature"},
		{"temperature too high", "inference:\n  temperature: 2.5\n", "inference.temperature"},
		{"zero topP", "inference:\n  topP: 0\n", "inference.topP"},
		{"zero pixel cap", "server:\n  maxImagePixels: 0\n", "server.maxImagePixels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := Load(path, envOf(map[string]string{DefaultAPIKeyEnv: "gsk_test"}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_APIKeyFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ_API_KEY=gsk_from_file\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("", envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "gsk_from_file", cfg.Inference.APIKey)

	// the environment wins over .env
	cfg, err = Load("", envOf(map[string]string{DefaultAPIKeyEnv: "gsk_from_env"}))
	require.NoError(t, err)
	assert.Equal(t, "gsk_from_env", cfg.Inference.APIKey)
}

func TestLoad_SafetyDefaults(t *testing.T) {
	cfg, err := Load("", envOf(map[string]string{DefaultAPIKeyEnv: "gsk_test"}))
	require.NoError(t, err)
	assert.Equal(t, int64(50_000_000), cfg.Server.MaxImagePixels)
	assert.False(t, cfg.Server.TrustProxy)
}

func TestResolvePath(t *testing.T) {
	env := map[string]string{"CONFIG_PATH": "/etc/radiology.yaml"}
	assert.Equal(t, "/etc/radiology.yaml", ResolvePath(func(k string) string { return env[k] }))

	// the package directory has no config.yaml
	assert.Equal(t, "", ResolvePath(func(string) string { return "" }))
}
