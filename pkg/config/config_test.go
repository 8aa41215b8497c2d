package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5, cfg.Executor.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Executor.RetryDelay)
	assert.Equal(t, time.Second, cfg.Executor.DefaultWait)
	assert.Equal(t, ProviderMemory, cfg.Provider.Type)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
executor:
  max_attempts: 3
  retry_delay: 250ms
provider:
  type: chrome
  headless: false
  launch_urls:
    com.example.app: https://example.com
gateways:
  telegram:
    enabled: true
    token: abc
    allowed_chats: [42]
log:
  path: /tmp/crazyagent.log
policy:
  deny_actions: [navigate_back]
  deny_packages: [com.netflix.mediaclient]
  deny_text: ["(?i)password"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Executor.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Executor.RetryDelay)
	assert.Equal(t, time.Second, cfg.Executor.DefaultWait, "unset fields keep defaults")
	assert.Equal(t, ProviderChrome, cfg.Provider.Type)
	assert.False(t, cfg.Provider.Headless)
	assert.Equal(t, "https://example.com", cfg.Provider.LaunchURLs["com.example.app"])
	assert.Equal(t, "https://web.whatsapp.com", cfg.Provider.LaunchURLs["com.whatsapp"])
	assert.Equal(t, "/tmp/crazyagent.log", cfg.Log.Path)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, []string{"navigate_back"}, cfg.Policy.DenyActions)
	assert.Equal(t, []string{"com.netflix.mediaclient"}, cfg.Policy.DenyPackages)

	tg, ok := cfg.GetTelegramConfig()
	require.True(t, ok)
	assert.Equal(t, "abc", tg.Token)
	assert.Equal(t, []int64{42}, tg.AllowedChats)
}

func TestLoadConfig_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "executor: ["},
		{"bad duration", "executor:\n  default_wait: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, "failed to decode")
		})
	}
}

func TestLoadConfig_DoesNotValidate(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "provider:\n  type: adb\n"))
	require.NoError(t, err)
	assert.Equal(t, "adb", cfg.Provider.Type)
	assert.ErrorContains(t, cfg.Validate(), "provider.type")

	cfg.Provider.Type = ProviderMemory
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero attempts", func(c *Config) { c.Executor.MaxAttempts = 0 }, "executor.max_attempts"},
		{"negative delay", func(c *Config) { c.Executor.RetryDelay = -time.Second }, "executor.retry_delay"},
		{"zero wait", func(c *Config) { c.Executor.DefaultWait = 0 }, "executor.default_wait"},
		{"unknown provider", func(c *Config) { c.Provider.Type = "adb" }, "provider.type"},
		{"telegram without token", func(c *Config) {
			c.Gateways["telegram"] = GatewayConfig{Enabled: true}
		}, "gateways.telegram.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestGetTelegramConfig_Disabled(t *testing.T) {
	cfg := Default()
	cfg.Gateways["telegram"] = GatewayConfig{Token: "abc"}
	_, ok := cfg.GetTelegramConfig()
	assert.False(t, ok)
}
