package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"scribe/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Usage         UsageConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"scribe"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

/// PostgresConfig describes the usage-ledger database. Host is optional:
// when empty the service falls back to the in-memory ledger.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"scribe"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"scribe"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) Configured() bool {
	return c.Host != ""
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// KafkaConfig describes the optional operation-event bus.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_AI_EVENTS_TOPIC" default:"ai.events"`
}

func (c KafkaConfig) Configured() bool {
	return len(c.Brokers) > 0
}

type AIConfig struct {
	OpenAIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicKey string `envconfig:"ANTHROPIC_API_KEY"`
	GoogleKey    string `envconfig:"GOOGLE_AI_API_KEY"`

	ActiveProvider string `envconfig:"ACTIVE_AI_PROVIDER" default:"openai"`

	OpenAIModel    string `envconfig:"OPENAI_MODEL"`
	AnthropicModel string `envconfig:"ANTHROPIC_MODEL"`
	GoogleModel    string `envconfig:"GOOGLE_AI_MODEL"`

	// Free-form instructions prepended to every generation prompt.
	PromptPreamble string `envconfig:"AI_PROMPT_PREAMBLE"`
	// Style directives prepended to image-generation prompts.
	VisualStyle string `envconfig:"AI_VISUAL_STYLE"`

	DefaultLanguage string `envconfig:"AI_DEFAULT_LANGUAGE" default:"en"`

	RequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"30s"`

	RateLimitPerMinute float64 `envconfig:"AI_RATE_LIMIT_PER_MINUTE" default:"0"`
	RateLimitBurst     int     `envconfig:"AI_RATE_LIMIT_BURST" default:"0"`
}

type UsageConfig struct {
	RetentionDays   int           `envconfig:"USAGE_RETENTION_DAYS" default:"365"`
	CleanupInterval time.Duration `envconfig:"USAGE_CLEANUP_INTERVAL" default:"24h"`
	CleanupEnabled  bool          `envconfig:"USAGE_CLEANUP_ENABLED" default:"true"`
}

type MetricsConfig struct {
	Enabled    bool   `envconfig:"METRICS_ENABLED" default:"true"`
	ListenAddr string `envconfig:"METRICS_LISTEN_ADDR" default:":9091"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
