// Configuration loader and default configuration tests.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 100, cfg.Server.RateLimitRPS)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)

	assert.Equal(t, 10, cfg.Supervisor.MemorySize)
	assert.Equal(t, 3, cfg.Supervisor.MaxFollowUpQuestions)
	assert.Equal(t, 2048, cfg.Supervisor.ContextTokenBudget)
	assert.Equal(t, 0.3, cfg.Supervisor.Temperature)

	assert.Equal(t, 30*time.Second, cfg.Workers.TaskTimeout)
	assert.False(t, cfg.Workers.Parallel)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "arbiter", cfg.Telemetry.ServiceName)
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 10, cfg.Supervisor.MemorySize)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  api_keys:
    - key-one
    - key-two

llm:
  provider: openai
  model: gpt-4o
  base_url: http://localhost:11434/v1

supervisor:
  memory_size: 20
  max_follow_up_questions: 5
  temperature: 0.1

workers:
  task_timeout: 45s
  parallel: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 20, cfg.Supervisor.MemorySize)
	assert.Equal(t, 5, cfg.Supervisor.MaxFollowUpQuestions)
	assert.Equal(t, 0.1, cfg.Supervisor.Temperature)
	assert.Equal(t, 45*time.Second, cfg.Workers.TaskTimeout)
	assert.True(t, cfg.Workers.Parallel)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [not a map"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("ARBITER_SERVER_HTTP_PORT", "9999")
	t.Setenv("ARBITER_LLM_API_KEY", "sk-from-env")
	t.Setenv("ARBITER_SUPERVISOR_TEMPERATURE", "0.9")
	t.Setenv("ARBITER_WORKERS_TASK_TIMEOUT", "90s")
	t.Setenv("ARBITER_WORKERS_PARALLEL", "true")
	t.Setenv("ARBITER_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, 0.9, cfg.Supervisor.Temperature)
	assert.Equal(t, 90*time.Second, cfg.Workers.TaskTimeout)
	assert.True(t, cfg.Workers.Parallel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  http_port: 8888\n"), 0644))

	t.Setenv("ARBITER_SERVER_HTTP_PORT", "7777")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("CUSTOM").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("ARBITER_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARBITER_SERVER_HTTP_PORT")
}

func TestLoader_Validators(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			return assert.AnError
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"BadPort", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"BadMemorySize", func(c *Config) { c.Supervisor.MemorySize = -1 }, "memory_size must be positive"},
		{"BadFollowUps", func(c *Config) { c.Supervisor.MaxFollowUpQuestions = 0 }, "max_follow_up_questions must be positive"},
		{"BadTemperature", func(c *Config) { c.Supervisor.Temperature = 3.5 }, "temperature must be between 0 and 2"},
		{"BadTaskTimeout", func(c *Config) { c.Workers.TaskTimeout = 0 }, "task_timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
