package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Global singleton for callers outside the wire graph.
var globalConfig *Config

// Config holds all environment backed configuration for dm-api.
type Config struct {
	// HTTP Server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Upstream (Venice, OpenAI-compatible)
	VeniceAPIKey              string        `env:"VENICE_API_KEY"`
	VeniceBaseURL             string        `env:"VENICE_BASE_URL" envDefault:"https://api.venice.ai/api/v1"`
	UpstreamTimeout           time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`
	IncludeVeniceSystemPrompt bool          `env:"INCLUDE_VENICE_SYSTEM_PROMPT" envDefault:"true"`
	DefaultModel              string        `env:"DEFAULT_MODEL" envDefault:"llama-3.1-70b-instruct"`
	ModelsFile                string        `env:"MODELS_FILE"`

	// Image generation
	ImageTimeout       time.Duration `env:"IMAGE_TIMEOUT" envDefault:"120s"`
	ImageModel         string        `env:"IMAGE_MODEL" envDefault:"fluently-xl"`
	ImageWidth         int           `env:"IMAGE_WIDTH" envDefault:"1024"`
	ImageHeight        int           `env:"IMAGE_HEIGHT" envDefault:"1024"`
	ImageSteps         int           `env:"IMAGE_STEPS" envDefault:"30"`
	ImageFormat        string        `env:"IMAGE_FORMAT" envDefault:"png"`
	ImageSafeMode      bool          `env:"IMAGE_SAFE_MODE" envDefault:"false"`
	ImageHideWatermark bool          `env:"IMAGE_HIDE_WATERMARK" envDefault:"true"`
	ImageStylePrefix   string        `env:"IMAGE_STYLE_PREFIX" envDefault:"fantasy art style"`
	ImageMaxPrompts    int           `env:"IMAGE_MAX_PROMPTS" envDefault:"3"`

	// Context window
	MaxContextTokens  int `env:"MAX_CONTEXT_TOKENS" envDefault:"45000"`
	MinRecentMessages int `env:"MIN_RECENT_MESSAGES" envDefault:"6"`
	MaxHistorySize    int `env:"MAX_HISTORY_SIZE" envDefault:"50"`

	// Conversation storage
	StoreDriver           string        `env:"STORE_DRIVER" envDefault:"file"`
	ChatHistoryDir        string        `env:"CHAT_HISTORY_DIR" envDefault:"chat_history"`
	DatabaseURL           string        `env:"DATABASE_URL"`
	DBMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBConnLifetime        time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	RedisURL              string        `env:"REDIS_URL"`
	ConversationRetention time.Duration `env:"CONVERSATION_RETENTION" envDefault:"720h"`
	RetentionSchedule     string        `env:"RETENTION_SCHEDULE" envDefault:"0 * * * *"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"dm-api"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"jan"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate   bool `env:"AUTO_MIGRATE" envDefault:"true"`
	EnableSwagger bool `env:"ENABLE_SWAGGER" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.VeniceBaseURL = strings.TrimRight(strings.TrimSpace(cfg.VeniceBaseURL), "/")
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.VeniceBaseURL); err != nil {
		return fmt.Errorf("invalid VENICE_BASE_URL: %w", err)
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreDriverFile:
		if strings.TrimSpace(c.ChatHistoryDir) == "" {
			return errors.New("CHAT_HISTORY_DIR must be set for the file store")
		}
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL must be set for the postgres store")
		}
	case StoreDriverRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL must be set for the redis store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("MAX_CONTEXT_TOKENS must be positive, got %d", c.MaxContextTokens)
	}
	if c.MinRecentMessages < 0 {
		return fmt.Errorf("MIN_RECENT_MESSAGES must not be negative, got %d", c.MinRecentMessages)
	}
	if c.ImageMaxPrompts < 1 {
		return fmt.Errorf("IMAGE_MAX_PROMPTS must be at least 1, got %d", c.ImageMaxPrompts)
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

// LoadEnvFiles overlays .env files found in the working directory or its parent.
func LoadEnvFiles(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

// GetGlobal returns the config loaded last.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
