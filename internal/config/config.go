// Package config loads the pipeline's environment-variable surface
// (spec.md §6) the way the teacher repo's internal/config.Load did:
// godotenv-backed .env loading plus fail-fast validation of mandatory
// fields. Typed parsing of the full struct (including the
// concurrency, timeout and lock knobs) is layered on with cleanenv, matching
// the ilyakaznacheev/cleanenv usage found in the tenders-go reference
// repo surveyed for this corpus.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full environment-variable surface of spec.md §6.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`

	NabavkiUsername string `env:"NABAVKI_USERNAME"`
	NabavkiPassword string `env:"NABAVKI_PASSWORD"`

	// DocLLMAPIKey is optional; its absence disables line-item
	// extraction but the core pipeline still runs (spec.md §9).
	DocLLMAPIKey string `env:"DOC_LLM_API_KEY"`

	FileStoreRoot string `env:"FILE_STORE_ROOT" env-default:"./downloads/files"`
	CookieJarPath string `env:"COOKIE_JAR_PATH" env-default:"./enabavki_cookies.json"`
	LogDir        string `env:"LOG_DIR" env-default:""`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	HealthDir     string `env:"HEALTH_DIR" env-default:"/tmp"`
	LockDir       string `env:"LOCK_DIR" env-default:"/tmp"`

	CrawlerDetailConcurrency int `env:"CRAWLER_DETAIL_CONCURRENCY" env-default:"3"`
	DocProcessorWorkers      int `env:"DOC_PROCESSOR_WORKERS" env-default:"2"`

	CrawlJobTimeout           time.Duration `env:"CRAWL_JOB_TIMEOUT" env-default:"2h30m"`
	DocJobTimeout             time.Duration `env:"DOC_JOB_TIMEOUT" env-default:"2h"`
	MaxDocumentBytes          int64         `env:"MAX_DOCUMENT_BYTES" env-default:"52428800"`
	DocumentFetchTimeout      time.Duration `env:"DOCUMENT_FETCH_TIMEOUT" env-default:"180s"`
	IncrementalFreshnessHours int           `env:"INCREMENTAL_FRESHNESS_HOURS" env-default:"24"`
	MaxDocumentRetries        int           `env:"MAX_DOCUMENT_RETRIES" env-default:"5"`

	StaleLockAge       time.Duration `env:"STALE_LOCK_AGE" env-default:"3h"`
	LockAcquireTimeout time.Duration `env:"LOCK_ACQUIRE_TIMEOUT" env-default:"5m"`
}

// Load reads a .env file if present, then parses the environment into
// a Config via cleanenv, and finally enforces the mandatory fields the
// same way the teacher's Load() did: explicit, named errors rather
// than a zero-value struct silently propagating.
func Load() (*Config, error) {
	// godotenv.Load is a no-op error if no .env file exists in the
	// working directory; we only surface genuine parse failures.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL environment variable is required but not set")
	}

	return &cfg, nil
}

// RequireNabavkiCredentials validates the portal-A login credentials
// are present; called only by commands that authenticate against
// e-nabavki, since e-pazar requires no login (spec.md §6).
func (c *Config) RequireNabavkiCredentials() error {
	if c.NabavkiUsername == "" || c.NabavkiPassword == "" {
		return errors.New("config: NABAVKI_USERNAME and NABAVKI_PASSWORD are required for the e-nabavki crawler")
	}
	return nil
}

// LineItemExtractionEnabled reports whether the document LLM key is
// configured. When false, the document processor degrades to
// "no product items extracted" without failing (spec.md §9).
func (c *Config) LineItemExtractionEnabled() bool {
	return c.DocLLMAPIKey != ""
}
