package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

const defaultConfigFile = "hfepa.yaml"

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Detector defaults, overridable per request
	Detector hfepa.Options `yaml:"detector"`

	// Worker pool
	WorkerCount        int `yaml:"worker_count"`
	MaxQueueSize       int `yaml:"max_queue_size"`
	ScoringParallelism int `yaml:"scoring_parallelism"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Result cache
	StoreDriver string        `yaml:"store_driver"`
	StoreDSN    string        `yaml:"store_dsn"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	// Callback delivery
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	WebhookAPIKey  string        `yaml:"webhook_api_key"`
}

// Defaults returns the configuration used when neither a file nor the
// environment says otherwise.
func Defaults() Config {
	return Config{
		Port:           "8090",
		Detector:       hfepa.DefaultOptions(),
		WorkerCount:    4,
		MaxQueueSize:   100,
		MaxUploadBytes: 52428800, // 50MB
		JobTTL:         1 * time.Hour,
		StoreDriver:    "memory",
		CacheTTL:       24 * time.Hour,
		WebhookTimeout: 30 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// HFEPA_CONFIG (or ./hfepa.yaml when present), then the environment.
func Load() (Config, error) {
	cfg := Defaults()

	path := os.Getenv("HFEPA_CONFIG")
	required := path != ""
	if path == "" {
		path = defaultConfigFile
	}
	if err := loadFile(path, &cfg, required); err != nil {
		return cfg, err
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	fillDefaults(&cfg)
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if err := loadFile(path, &cfg, true); err != nil {
		return cfg, err
	}
	fillDefaults(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment. Server settings that fail to parse
// keep their previous value; detector settings that fail to parse are
// configuration errors.
func applyEnv(cfg *Config) error {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("HFEPA_API_KEY", cfg.APIKey)

	var errs []error
	if v := os.Getenv("WINDOW_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, envError("WINDOW_SIZE", "window_size", v))
		} else {
			cfg.Detector.WindowSize = n
		}
	}
	if v := os.Getenv("HEADER_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, envError("HEADER_THRESHOLD", "header_threshold", v))
		} else {
			cfg.Detector.HeaderThreshold = f
		}
	}
	if v := os.Getenv("FOOTER_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, envError("FOOTER_THRESHOLD", "footer_threshold", v))
		} else {
			cfg.Detector.FooterThreshold = &f
		}
	}
	if v := os.Getenv("WEIGHTS"); v != "" {
		w, err := hfepa.ParseWeights(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WEIGHTS: %w", err))
		} else {
			cfg.Detector.Weights = w
		}
	}
	cfg.ScoringParallelism = envInt("SCORING_PARALLELISM", cfg.ScoringParallelism)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.StoreDriver = envOr("STORE_DRIVER", cfg.StoreDriver)
	cfg.StoreDSN = envOr("STORE_DSN", cfg.StoreDSN)
	cfg.CacheTTL = envDuration("CACHE_TTL", cfg.CacheTTL)

	cfg.WebhookTimeout = envDuration("WEBHOOK_TIMEOUT", cfg.WebhookTimeout)
	cfg.WebhookAPIKey = envOr("WEBHOOK_API_KEY", cfg.WebhookAPIKey)
	return errors.Join(errs...)
}

func envError(key, field, value string) error {
	return fmt.Errorf("%s: %w", key, &hfepa.ConfigError{Field: field, Message: fmt.Sprintf("not a number: %q", value)})
}

func fillDefaults(cfg *Config) {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = 30 * time.Second
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "memory"
	}
	if cfg.Detector.Weights == nil {
		cfg.Detector.Weights = hfepa.DefaultOptions().Weights
	}
}

// DetectorOptions returns the detector defaults with scoring parallelism
// applied.
func (c Config) DetectorOptions() hfepa.Options {
	opts := c.Detector
	opts.Weights = append([]float64(nil), c.Detector.Weights...)
	if c.Detector.FooterThreshold != nil {
		ft := *c.Detector.FooterThreshold
		opts.FooterThreshold = &ft
	}
	if c.ScoringParallelism != 0 {
		opts.Parallelism = c.ScoringParallelism
	}
	return opts
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("HFEPA_API_KEY is required")
	}
	switch c.StoreDriver {
	case "memory":
	case "sqlite", "pgx":
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if err := c.DetectorOptions().Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
