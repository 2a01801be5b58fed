// Package config loads settings from the environment, the user's env file
// and an optional YAML overrides file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/stockmeta/internal/export"
	"github.com/raine/stockmeta/internal/llm"
	"gopkg.in/yaml.v3"
)

const (
	AppName     = "stockmeta"
	EnvFileName = "config.env"
)

// RequiredEnvVars must be set for the server and CLI to run.
var RequiredEnvVars = []string{"GEMINI_API_KEY", "STOCKMETA_TOKEN_KEY"}

// Config is the resolved configuration. Secrets come only from the
// environment; the YAML file can tune everything else.
type Config struct {
	GeminiAPIKey  string `yaml:"-"`
	GeminiModel   string `yaml:"gemini_model"`
	GeminiBaseURL string `yaml:"gemini_base_url"`
	TokenKey      string `yaml:"-"`

	DBPath    string `yaml:"db_path"`
	Addr      string `yaml:"addr"`
	ExportDir string `yaml:"export_dir"`

	BackendURL        string `yaml:"backend_url"`
	BackendServiceKey string `yaml:"-"`

	// RateLimit is the sustained requests per second allowed on /api.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	SessionMaxAge time.Duration `yaml:"session_max_age"`
	PruneInterval time.Duration `yaml:"prune_interval"`

	Targets llm.Targets `yaml:"targets"`

	S3 export.S3Config `yaml:"-"`
}

// Default returns the configuration used before the file and environment
// are applied.
func Default() Config {
	return Config{
		GeminiModel:   llm.DefaultModel,
		DBPath:        "stockmeta.db",
		Addr:          ":8080",
		ExportDir:     "exports",
		RateLimit:     1,
		RateBurst:     5,
		SessionMaxAge: 30 * 24 * time.Hour,
		PruneInterval: 24 * time.Hour,
		Targets:       llm.DefaultTargets(),
	}
}

// Load resolves the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom resolves the configuration with getenv as the environment.
// STOCKMETA_CONFIG names an optional YAML file applied before the
// environment, so env vars win.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path := getenv("STOCKMETA_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.GeminiBaseURL, "GEMINI_BASE_URL")
	setString(&cfg.TokenKey, "STOCKMETA_TOKEN_KEY")
	setString(&cfg.DBPath, "STOCKMETA_DB_PATH")
	setString(&cfg.Addr, "STOCKMETA_ADDR")
	setString(&cfg.ExportDir, "STOCKMETA_EXPORT_DIR")
	setString(&cfg.BackendURL, "BACKEND_URL")
	setString(&cfg.BackendServiceKey, "BACKEND_SERVICE_KEY")
	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.S3.Bucket, "S3_BUCKET")
	setString(&cfg.S3.Region, "S3_REGION")

	if v := getenv("STOCKMETA_RATE_LIMIT"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("STOCKMETA_RATE_LIMIT must be a positive number, got %q", v)
		}
		cfg.RateLimit = rate
	}
	if v := getenv("S3_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("S3_USE_SSL must be a boolean, got %q", v)
		}
		cfg.S3.UseSSL = useSSL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Targets = cfg.Targets.WithDefaults()
	return &cfg, nil
}

// validate rejects values that would stall or crash the server, whichever
// source they came from.
func (c *Config) validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %v", c.RateLimit)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1, got %d", c.RateBurst)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("session_max_age must be positive, got %s", c.SessionMaxAge)
	}
	if c.PruneInterval <= 0 {
		return fmt.Errorf("prune_interval must be positive, got %s", c.PruneInterval)
	}
	return nil
}

// Missing returns the names of required settings that are empty.
func (c *Config) Missing() []string {
	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.TokenKey == "" {
		missing = append(missing, "STOCKMETA_TOKEN_KEY")
	}
	return missing
}

// BackendEnabled reports whether the hosted backend is configured.
func (c *Config) BackendEnabled() bool {
	return c.BackendURL != "" && c.BackendServiceKey != ""
}

// S3Enabled reports whether exports should also go to S3.
func (c *Config) S3Enabled() bool {
	return c.S3.Endpoint != "" && c.S3.Bucket != ""
}

// CheckRequired returns the names of required environment variables that
// are not set.
func CheckRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Dir returns the application's config directory, creating it if needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// EnvFilePath returns the full path to the env file.
func EnvFilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment are not overridden.
func LoadEnvFile() {
	configPath, err := EnvFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}
