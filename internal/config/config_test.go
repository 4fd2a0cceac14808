package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Server.StoragePath = "./archflow-data/diagrams"
	cfg.LLM.Provider = "googleai"
	cfg.LLM.APIKey = "test-key"
	cfg.Trigger.ConfidenceThreshold = 0.7
	cfg.Trigger.MinMessages = 3
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8880, cfg.Server.Port)
	assert.Equal(t, "googleai", cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 60, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, 0.7, cfg.Trigger.ConfidenceThreshold)
	assert.Equal(t, 10, cfg.Trigger.WindowMinutes)
	assert.Equal(t, 3, cfg.Trigger.MinMessages)
	assert.Equal(t, 60, cfg.Trigger.DebounceSeconds)
	assert.False(t, cfg.Render.QueueEnabled)
	assert.Equal(t, 30, cfg.Render.TimeoutSeconds)
	assert.Equal(t, 1920, cfg.Render.MaxWidth)
	assert.Equal(t, 1080, cfg.Render.MaxHeight)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archflow.toml")
	content := `
[server]
port = 9999

[trigger]
min_messages = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Trigger.MinMessages)
	// untouched keys keep their defaults
	assert.Equal(t, 0.7, cfg.Trigger.ConfidenceThreshold)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ARCHFLOW_SERVER_PORT", "7070")
	t.Setenv("ARCHFLOW_LLM_PROVIDER", "anthropic")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archflow.toml")

	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8880, cfg.Server.Port)

	assert.Error(t, InitConfig(path), "existing file must not be overwritten")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported provider", func(c *Config) { c.LLM.Provider = "llamacpp" }},
		{"empty provider", func(c *Config) { c.LLM.Provider = "" }},
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"threshold above one", func(c *Config) { c.Trigger.ConfidenceThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Trigger.ConfidenceThreshold = -0.1 }},
		{"zero min messages", func(c *Config) { c.Trigger.MinMessages = 0 }},
		{"missing storage path", func(c *Config) { c.Server.StoragePath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_AllProviders(t *testing.T) {
	for _, provider := range []string{"googleai", "openai", "anthropic"} {
		cfg := validConfig()
		cfg.LLM.Provider = provider
		assert.NoError(t, Validate(cfg), provider)
	}
}
