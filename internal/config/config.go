package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by the persistence layer.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverMySQL    = "mysql"
	StoreDriverPostgres = "postgres"
)

// Config aggregates runtime configuration for the assistant.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	LLM          LLMConfig
	Prompts      PromptConfig
	Pipeline     PipelineConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects and tunes the ticket store backend.
type StoreConfig struct {
	Driver         string
	DSN            string
	SQLitePath     string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the lookup cache.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// LLMConfig configures the text-completion service.
type LLMConfig struct {
	APIKey                string
	BaseURL               string
	ClassifierModel       string
	ClassifierTemperature float64
	ResponderModel        string
	ResponderTemperature  float64
	StructuredOutput      bool
	TimeoutSeconds        int
}

// PromptConfig locates prompt templates.
type PromptConfig struct {
	Dir              string
	ClassifyTemplate string
	ResponseTemplate string
}

// PipelineConfig tunes the message pipeline.
type PipelineConfig struct {
	TicketIDAttempts int
}

// NotificationConfig holds notification endpoints for ticket events.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverSQLite))
	switch driver {
	case StoreDriverSQLite, StoreDriverMySQL, StoreDriverPostgres:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-assistant"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Store: StoreConfig{
			Driver:         driver,
			DSN:            os.Getenv("STORE_DSN"),
			SQLitePath:     getEnv("SQLITE_PATH", "customer_service.db"),
			MaxConns:       int32(getEnvAsInt("STORE_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("STORE_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("STORE_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("STORE_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("STORE_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			CacheTTLSeconds: getEnvAsInt("REDIS_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		LLM: LLMConfig{
			APIKey:                os.Getenv("OPENAI_API_KEY"),
			BaseURL:               os.Getenv("OPENAI_BASE_URL"),
			ClassifierModel:       getEnv("LLM_CLASSIFIER_MODEL", "gpt-4o"),
			ClassifierTemperature: getEnvAsFloat("LLM_CLASSIFIER_TEMPERATURE", 0.1),
			ResponderModel:        getEnv("LLM_RESPONDER_MODEL", "gpt-4o"),
			ResponderTemperature:  getEnvAsFloat("LLM_RESPONDER_TEMPERATURE", 0.2),
			StructuredOutput:      getEnvAsBool("LLM_STRUCTURED_OUTPUT", true),
			TimeoutSeconds:        getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
		},
		Prompts: PromptConfig{
			Dir:              os.Getenv("PROMPT_DIR"),
			ClassifyTemplate: getEnv("PROMPT_CLASSIFY_TEMPLATE", "classify_request_v1"),
			ResponseTemplate: getEnv("PROMPT_RESPONSE_TEMPLATE", "write_response_prompt_v2"),
		},
		Pipeline: PipelineConfig{
			TicketIDAttempts: getEnvAsInt("TICKET_ID_ATTEMPTS", 3),
		},
		Notification: NotificationConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long ticket lookups stay cached.
func (r RedisConfig) CacheTTL() time.Duration {
	if r.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// Timeout bounds a single completion call. Zero means no bound.
func (l LLMConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
