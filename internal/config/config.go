package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Oracle providers.
const (
	OracleOllama = "ollama"
	OracleOpenAI = "openai"
	OracleNone   = "none"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	HTTPTimeout      time.Duration
	MetricsNamespace string

	OracleProvider  string
	OracleTimeout   time.Duration
	OllamaBaseURL   string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	HumanizePrompts bool

	BackendBaseURL         string
	BackendTimeout         time.Duration
	BackendServiceToken    string
	BackendServiceSecret   string
	BackendServiceIssuer   string
	BackendServiceAudience string
	BackendServiceSubject  string
	BackendServiceRoles    []string
	BackendServiceTTL      time.Duration
	BranchCacheTTL         time.Duration

	SessionBackend       string
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	DatabaseURL      string
	LedgerSQLitePath string
}

// Load returns configuration populated from environment variables with fallbacks.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:                 getenvDefault("APP_ENV", "development"),
		LogLevel:               getenvDefault("LOG_LEVEL", "info"),
		HTTPListenAddr:         getenvDefault("HTTP_LISTEN_ADDR", ":8080"),
		MetricsNamespace:       getenvDefault("METRICS_NAMESPACE", "quote_orchestrator"),
		OracleProvider:         strings.ToLower(getenvDefault("ORACLE_PROVIDER", OracleOllama)),
		OllamaBaseURL:          getenvDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:            getenvDefault("OLLAMA_MODEL", "llama3.1"),
		OpenAIAPIKey:           trimmedEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:          trimmedEnv("OPENAI_BASE_URL"),
		OpenAIModel:            getenvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		BackendBaseURL:         trimmedEnv("BACKEND_BASE_URL"),
		BackendServiceToken:    trimmedEnv("BACKEND_SERVICE_TOKEN"),
		BackendServiceSecret:   trimmedEnv("BACKEND_SERVICE_SECRET"),
		BackendServiceIssuer:   trimmedEnv("BACKEND_SERVICE_ISSUER"),
		BackendServiceAudience: trimmedEnv("BACKEND_SERVICE_AUDIENCE"),
		BackendServiceSubject:  getenvDefault("BACKEND_SERVICE_SUBJECT", "ri-orchestrator"),
		BackendServiceRoles:    splitAndTrim(trimmedEnv("BACKEND_SERVICE_ROLES")),
		SessionBackend:         strings.ToLower(getenvDefault("SESSION_BACKEND", SessionMemory)),
		RedisAddr:              trimmedEnv("REDIS_ADDR"),
		RedisPassword:          trimmedEnv("REDIS_PASSWORD"),
		DatabaseURL:            trimmedEnv("DATABASE_URL"),
		LedgerSQLitePath:       trimmedEnv("LEDGER_SQLITE_PATH"),
	}

	durations := []struct {
		key      string
		fallback string
		dest     *time.Duration
	}{
		{"HTTP_TIMEOUT", "60s", &cfg.HTTPTimeout},
		{"ORACLE_TIMEOUT", "20s", &cfg.OracleTimeout},
		{"BACKEND_TIMEOUT", "10s", &cfg.BackendTimeout},
		{"BACKEND_SERVICE_TTL", "1h", &cfg.BackendServiceTTL},
		{"BRANCH_CACHE_TTL", "10m", &cfg.BranchCacheTTL},
		{"SESSION_IDLE_TIMEOUT", "2h", &cfg.SessionIdleTimeout},
		{"SESSION_SWEEP_INTERVAL", "5m", &cfg.SessionSweepInterval},
	}
	for _, d := range durations {
		val, err := time.ParseDuration(getenvDefault(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s duration: %w", d.key, err)
		}
		if val < 0 {
			return nil, fmt.Errorf("%s cannot be negative", d.key)
		}
		*d.dest = val
	}

	if redisDBStr := getenvDefault("REDIS_DB", "0"); redisDBStr != "" {
		db, convErr := strconv.Atoi(redisDBStr)
		if convErr != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value: %w", convErr)
		}
		cfg.RedisDB = db
	}

	cfg.RedisTLS = strings.EqualFold(getenvDefault("REDIS_TLS", "false"), "true")
	cfg.HumanizePrompts = strings.EqualFold(getenvDefault("HUMANIZE_PROMPTS", "false"), "true")

	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if cfg.BackendServiceToken == "" && cfg.BackendServiceSecret == "" {
		return nil, fmt.Errorf("BACKEND_SERVICE_TOKEN or BACKEND_SERVICE_SECRET is required")
	}

	switch cfg.OracleProvider {
	case OracleOllama, OracleNone:
	case OracleOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when ORACLE_PROVIDER=openai")
		}
	default:
		return nil, fmt.Errorf("unknown ORACLE_PROVIDER %q", cfg.OracleProvider)
	}

	switch cfg.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	cfg.BackendBaseURL = strings.TrimRight(cfg.BackendBaseURL, "/")
	cfg.OllamaBaseURL = strings.TrimRight(cfg.OllamaBaseURL, "/")

	return cfg, nil
}

// Production reports whether APP_ENV selects production behaviour.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getenvDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func splitAndTrim(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}

func trimmedEnv(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return ""
}
