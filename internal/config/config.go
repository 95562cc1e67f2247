package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Load when the inference API key is not set.
var ErrMissingAPIKey = errors.New("inference api key is not configured")

const (
	DefaultPath      = "config.yaml"
	DefaultAPIKeyEnv = "GROQ_API_KEY"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		IdleTimeout     time.Duration `yaml:"idleTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
		MaxImagePixels  int64         `yaml:"maxImagePixels"`
		TrustProxy      bool          `yaml:"trustProxy"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
	} `yaml:"server"`

	Inference struct {
		APIKeyEnv   string        `yaml:"apiKeyEnv"`
		APIKey      string        `yaml:"-"`
		BaseURL     string        `yaml:"baseURL"`
		Model       string        `yaml:"model"`
		Temperature float32       `yaml:"temperature"`
		TopP        float32       `yaml:"topP"`
		MaxTokens   int           `yaml:"maxTokens"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"inference"`

	Report struct {
		Title      string `yaml:"title"`
		Subtitle   string `yaml:"subtitle"`
		Disclaimer string `yaml:"disclaimer"`
		Filename   string `yaml:"filename"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"report"`

	Session struct {
		TTL             time.Duration `yaml:"ttl"`
		CleanupInterval time.Duration `yaml:"cleanupInterval"`
	} `yaml:"session"`

	RateLimit struct {
		PerMinute float64 `yaml:"perMinute"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns a config with every optional field populated.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 90 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 5 * time.Second
	c.Server.MaxUploadBytes = 10 << 20
	c.Server.MaxImagePixels = 50_000_000

	c.Inference.APIKeyEnv = DefaultAPIKeyEnv
	c.Inference.BaseURL = "https://api.groq.com/openai/v1"
	c.Inference.Model = "llama-3.2-11b-vision-preview"
	c.Inference.Temperature = 0.2
	c.Inference.TopP = 0.5
	c.Inference.MaxTokens = 400
	c.Inference.Timeout = 60 * time.Second

	c.Report.Title = "Radiology Report"
	c.Report.Subtitle = "Advanced Medical Imaging Analysis"
	c.Report.Disclaimer = "This report was generated by an AI model and is not a medical diagnosis. " +
		"All findings must be reviewed by a qualified radiologist."
	c.Report.Filename = "radiology_report.pdf"
	c.Report.Compress = true

	c.Session.TTL = 30 * time.Minute
	c.Session.CleanupInterval = time.Minute

	c.RateLimit.PerMinute = 10
	c.RateLimit.Burst = 3

	c.Log.Level = "info"
	return &c
}

// ResolvePath picks the config file: CONFIG_PATH if set, otherwise
// config.yaml when it exists, otherwise none.
func ResolvePath(getenv func(string) string) string {
	if v := getenv("CONFIG_PATH"); v != "" {
		return v
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Load baca file yaml (kalau ada), lalu API key dari getenv atau .env.
// An empty path skips the file and keeps the defaults. A variable set in
// the environment wins over the same name in .env.
func Load(path string, getenv func(string) string) (*Config, error) {
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.Inference.APIKeyEnv == "" {
		cfg.Inference.APIKeyEnv = DefaultAPIKeyEnv
	}
	key := getenv(cfg.Inference.APIKeyEnv)
	if strings.TrimSpace(key) == "" {
		key = dotenv[cfg.Inference.APIKeyEnv]
	}
	cfg.Inference.APIKey = strings.TrimSpace(key)
	if cfg.Inference.APIKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, cfg.Inference.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	case c.Server.MaxUploadBytes <= 0:
		return fmt.Errorf("server.maxUploadBytes must be positive")
	case c.Server.MaxImagePixels <= 0:
		return fmt.Errorf("server.maxImagePixels must be positive")
	case c.Inference.BaseURL == "":
		return fmt.Errorf("inference.baseURL is required")
	case c.Inference.Model == "":
		return fmt.Errorf("inference.model is required")
	// zero is dropped from the request (omitempty) and the provider default applies
	case c.Inference.Temperature <= 0 || c.Inference.Temperature > 2:
		return fmt.Errorf("inference.temperature must be in (0, 2]: %v", c.Inference.Temperature)
	case c.Inference.TopP <= 0 || c.Inference.TopP > 1:
		return fmt.Errorf("inference.topP must be in (0, 1]: %v", c.Inference.TopP)
	case c.Inference.MaxTokens <= 0:
		return fmt.Errorf("inference.maxTokens must be positive")
	case c.Session.TTL <= 0:
		return fmt.Errorf("session.ttl must be positive")
	case c.Report.Filename == "" || !strings.HasSuffix(strings.ToLower(c.Report.Filename), ".pdf"):
		return fmt.Errorf("report.filename must end in .pdf: %q", c.Report.Filename)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
