package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
)

type Config struct {
	Mode Mode `yaml:"mode"`

	Port string `yaml:"port"`

	GCPProjectID string  `yaml:"gcp_project"`
	GCPLocation  string  `yaml:"gcp_location"`
	ModelName    string  `yaml:"model_name"`
	APIKey       string  `yaml:"api_key"` // Gemini API key; empty means Vertex AI
	Temperature  float32 `yaml:"temperature"`

	StorageBackend string `yaml:"storage_backend"` // "memory", "sqlite" or "firestore"
	SQLitePath     string `yaml:"sqlite_path"`
	UseMockLLM     bool   `yaml:"use_mock_llm"` // true = use mock even on GCP

	LogLevel      string        `yaml:"log_level"`
	StreamTimeout time.Duration `yaml:"stream_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Mode:           ModeLocal,
		Port:           "8080",
		GCPLocation:    "us-central1",
		ModelName:      "gemini-2.5-flash-lite",
		Temperature:    0.7,
		StorageBackend: StorageMemory,
		SQLitePath:     "ledger.db",
		UseMockLLM:     true,
		LogLevel:       "info",
		StreamTimeout:  30 * time.Second,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load builds the config from defaults, then the YAML file at path (if path
// is non-empty), then LEDGER_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	modeSet := os.Getenv("LEDGER_MODE") != ""
	cfg.Mode = Mode(getEnv("LEDGER_MODE", string(cfg.Mode)))
	cfg.Port = getEnv("LEDGER_PORT", getEnv("PORT", cfg.Port))

	cfg.GCPProjectID = getEnv("LEDGER_GCP_PROJECT", cfg.GCPProjectID)
	cfg.GCPLocation = getEnv("LEDGER_GCP_LOCATION", cfg.GCPLocation)
	cfg.ModelName = getEnv("LEDGER_MODEL_NAME", cfg.ModelName)
	cfg.APIKey = getEnv("LEDGER_API_KEY", cfg.APIKey)

	cfg.StorageBackend = getEnv("LEDGER_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.SQLitePath = getEnv("LEDGER_SQLITE_PATH", cfg.SQLitePath)

	// Switching to gcp mode through the environment turns the mock off
	// unless it is asked for explicitly.
	mockDefault := cfg.UseMockLLM
	if modeSet && cfg.Mode == ModeGCP {
		mockDefault = false
	}
	cfg.UseMockLLM = getBoolEnv("LEDGER_USE_MOCK_LLM", mockDefault)

	cfg.LogLevel = getEnv("LEDGER_LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("LEDGER_STREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEDGER_STREAM_TIMEOUT: %w", err)
		}
		cfg.StreamTimeout = d
	}
	if v := os.Getenv("LEDGER_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("LEDGER_TEMPERATURE: %w", err)
		}
		cfg.Temperature = float32(f)
	}
	return nil
}

// Validate checks combinations that cannot work at runtime.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeLocal, ModeGCP:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path must be set for sqlite storage"))
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("LEDGER_GCP_PROJECT is required for firestore storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if !c.UseMockLLM && c.APIKey == "" && (c.GCPProjectID == "" || c.GCPLocation == "") {
		errs = append(errs, errors.New("either LEDGER_API_KEY or LEDGER_GCP_PROJECT and LEDGER_GCP_LOCATION must be set"))
	}

	if c.StreamTimeout <= 0 {
		errs = append(errs, errors.New("stream_timeout must be positive"))
	}

	return errors.Join(errs...)
}
