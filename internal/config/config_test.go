package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, 30, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, 3, cfg.LLM.RetryAttempts)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 4096, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.InDelta(t, 0.1, cfg.Scout.ResearchTemperature, 0.001)
	assert.InDelta(t, 0.0, cfg.Scout.VerifyTemperature, 0.001)
	assert.InDelta(t, 0.5, cfg.Scout.MinConfidence, 0.001)
	assert.Empty(t, cfg.Rules.StaticPath)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "default", cfg.Temporal.Namespace)
	assert.Equal(t, "jace-scout", cfg.Temporal.TaskQueue)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: ./jace.db
llm:
  provider: openai
scout:
  min_confidence: 0.7
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://app.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./jace.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.InDelta(t, 0.7, cfg.Scout.MinConfidence, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	// Defaults still apply for unset values
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("JACE_STORE_DRIVER", "postgres")
	t.Setenv("JACE_LOG_LEVEL", "warn")
	t.Setenv("JACE_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults a command relies on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "jace.db"
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.TimeoutSecs = 120
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Scout.MinConfidence = 0.5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Check(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	assert.NoError(t, cfg.Validate("check"), "check never calls a model")
	assert.NoError(t, cfg.Validate("review"))
}

func TestValidate_MissingStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql"`)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_ProviderKeys(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("scout"))

	cfg.LLM.Provider = "openai"
	err := cfg.Validate("scout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.key is required")

	cfg.OpenAI.Key = "sk-openai"
	assert.NoError(t, cfg.Validate("worker"))

	cfg.LLM.Provider = "mistral"
	err = cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `llm.provider "mistral"`)
}

func TestValidate_ScoutBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Scout.MinConfidence = 1.2
	cfg.LLM.TimeoutSecs = 0

	err := cfg.Validate("scout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scout.min_confidence must be between 0 and 1")
	assert.Contains(t, err.Error(), "llm.timeout_secs must be > 0")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
