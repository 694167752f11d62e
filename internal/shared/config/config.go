package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	ObjectStoreType string        `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string        `env:"LOCAL_STORE_DIR" envDefault:"./data/faces"`
	AWSRegion       string        `env:"AWS_REGION"`
	S3Bucket        string        `env:"S3_BUCKET"`
	S3Prefix        string        `env:"S3_PREFIX"`
	SSEKMSKeyID     string        `env:"SSE_KMS_KEY_ID"`
	PresignTTL      time.Duration `env:"S3_PRESIGN_TTL" envDefault:"1h"`

	RecognizerType      string        `env:"RECOGNIZER" envDefault:"http"`
	RecognizerURL       string        `env:"RECOGNIZER_URL" envDefault:"http://localhost:5001/encode"`
	RecognizerTimeout   time.Duration `env:"RECOGNIZER_TIMEOUT" envDefault:"15s"`
	RecognizerModelsDir string        `env:"RECOGNIZER_MODELS_DIR" envDefault:"./models"`

	MatchTolerance    float64       `env:"FACE_MATCH_TOLERANCE" envDefault:"0.5"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`
	VerifyConcurrency int           `env:"VERIFY_CONCURRENCY" envDefault:"4"`

	RateLimitVerifyRPS   float64 `env:"RATE_LIMIT_VERIFY_RPS" envDefault:"1"`
	RateLimitVerifyBurst int     `env:"RATE_LIMIT_VERIFY_BURST" envDefault:"5"`

	DatabaseURL         string `env:"DATABASE_URL"`
	DBPool              DBPool
	AttemptEventsSQSURL string `env:"ATTEMPT_EVENTS_SQS_URL"`
}

// DBPool overrides the database pool defaults of the running command.
// Zero values keep the command's defaults.
type DBPool struct {
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME"`
	PingTimeout     time.Duration `env:"DB_PING_TIMEOUT"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.RecognizerType = normalizeRecognizerType(cfg.RecognizerType)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)
	if cfg.VerifyConcurrency <= 0 {
		cfg.VerifyConcurrency = 1
	}
	if err := cfg.DBPool.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p DBPool) validate() error {
	if p.MaxOpenConns < 0 || p.MaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative")
	}
	if p.ConnMaxLifetime < 0 || p.ConnMaxIdleTime < 0 || p.PingTimeout < 0 {
		return fmt.Errorf("DB_* durations must not be negative")
	}
	return nil
}

// IsDevLike reports whether env runs without production safeguards.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeRecognizerType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dlib":
		return "dlib"
	default:
		return "http"
	}
}
