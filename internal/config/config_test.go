package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_LISTEN_ADDR", "ORACLE_PROVIDER", "OPENAI_API_KEY", "ORACLE_TIMEOUT",
	"HUMANIZE_PROMPTS", "BACKEND_SERVICE_TOKEN", "BACKEND_SERVICE_SUBJECT", "BACKEND_SERVICE_ROLES",
	"BACKEND_SERVICE_TTL", "SESSION_BACKEND", "SESSION_IDLE_TIMEOUT", "REDIS_ADDR", "REDIS_DB", "REDIS_TLS",
}

func setRequired(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	t.Setenv("BACKEND_BASE_URL", "http://backend.local/api/")
	t.Setenv("BACKEND_SERVICE_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://backend.local/api", cfg.BackendBaseURL)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, OracleOllama, cfg.OracleProvider)
	assert.Equal(t, SessionMemory, cfg.SessionBackend)
	assert.Equal(t, "ri-orchestrator", cfg.BackendServiceSubject)
	assert.Equal(t, time.Hour, cfg.BackendServiceTTL)
	assert.Equal(t, 20*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTimeout)
	assert.False(t, cfg.HumanizePrompts)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ORACLE_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TLS", "TRUE")
	t.Setenv("HUMANIZE_PROMPTS", "true")
	t.Setenv("BACKEND_SERVICE_ROLES", "service, admin ,,")
	t.Setenv("ORACLE_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, OracleOpenAI, cfg.OracleProvider)
	assert.Equal(t, SessionRedis, cfg.SessionBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.RedisTLS)
	assert.True(t, cfg.HumanizePrompts)
	assert.Equal(t, []string{"service", "admin"}, cfg.BackendServiceRoles)
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing backend", map[string]string{"BACKEND_BASE_URL": ""}, "BACKEND_BASE_URL"},
		{"missing credentials", map[string]string{"BACKEND_SERVICE_SECRET": ""}, "BACKEND_SERVICE_TOKEN"},
		{"bad duration", map[string]string{"ORACLE_TIMEOUT": "soon"}, "ORACLE_TIMEOUT"},
		{"negative duration", map[string]string{"SESSION_IDLE_TIMEOUT": "-1m"}, "SESSION_IDLE_TIMEOUT"},
		{"openai without key", map[string]string{"ORACLE_PROVIDER": "openai"}, "OPENAI_API_KEY"},
		{"unknown provider", map[string]string{"ORACLE_PROVIDER": "gemini"}, "ORACLE_PROVIDER"},
		{"redis without addr", map[string]string{"SESSION_BACKEND": "redis"}, "REDIS_ADDR"},
		{"bad redis db", map[string]string{"REDIS_DB": "zero"}, "REDIS_DB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
