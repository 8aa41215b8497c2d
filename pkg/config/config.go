package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig                `yaml:"app"`
	Executor ExecutorConfig           `yaml:"executor"`
	Provider ProviderConfig           `yaml:"provider"`
	Gateways map[string]GatewayConfig `yaml:"gateways"`
	Log      LogConfig                `yaml:"log"`
	Policy   PolicyConfig             `yaml:"policy"`
}

type AppConfig struct {
	Name string `yaml:"name"`
}

type ExecutorConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	DefaultWait time.Duration `yaml:"default_wait"`
}

// ProviderConfig selects the UI tree provider. Type is "memory" (a tree
// loaded from TreeFile) or "chrome".
type ProviderConfig struct {
	Type       string            `yaml:"type"`
	TreeFile   string            `yaml:"tree_file"`
	Headless   bool              `yaml:"headless"`
	LaunchURLs map[string]string `yaml:"launch_urls"`
}

type GatewayConfig struct {
	Token        string  `yaml:"token"`
	Enabled      bool    `yaml:"enabled"`
	AllowedChats []int64 `yaml:"allowed_chats,omitempty"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"` // empty disables the log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type PolicyConfig struct {
	DenyActions  []string `yaml:"deny_actions"` // step action kinds, e.g. navigate_back
	DenyPackages []string `yaml:"deny_packages"`
	DenyText     []string `yaml:"deny_text"`
}

const (
	ProviderMemory = "memory"
	ProviderChrome = "chrome"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "crazyagent"},
		Executor: ExecutorConfig{
			MaxAttempts: 5,
			RetryDelay:  500 * time.Millisecond,
			DefaultWait: time.Second,
		},
		Provider: ProviderConfig{
			Type:     ProviderMemory,
			Headless: true,
			LaunchURLs: map[string]string{
				"com.whatsapp":                     "https://web.whatsapp.com",
				"com.google.android.youtube":       "https://m.youtube.com",
				"com.google.android.apps.dynamite": "https://chat.google.com",
				"com.google.android.gm":            "https://mail.google.com",
				"com.android.chrome":               "https://www.google.com",
				"com.google.android.apps.maps":     "https://maps.google.com",
				"com.instagram.android":            "https://www.instagram.com",
				"com.facebook.katana":              "https://m.facebook.com",
				"com.twitter.android":              "https://x.com",
				"org.telegram.messenger":           "https://web.telegram.org",
				"com.spotify.music":                "https://open.spotify.com",
				"com.netflix.mediaclient":          "https://www.netflix.com",
			},
		},
		Gateways: map[string]GatewayConfig{},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
// The result is not validated so callers can apply overrides first.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Executor.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("executor.max_attempts must be positive, got %d", c.Executor.MaxAttempts))
	}
	if c.Executor.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("executor.retry_delay must be positive, got %s", c.Executor.RetryDelay))
	}
	if c.Executor.DefaultWait <= 0 {
		errs = append(errs, fmt.Errorf("executor.default_wait must be positive, got %s", c.Executor.DefaultWait))
	}
	switch c.Provider.Type {
	case ProviderMemory, ProviderChrome:
	default:
		errs = append(errs, fmt.Errorf("provider.type must be %q or %q, got %q", ProviderMemory, ProviderChrome, c.Provider.Type))
	}
	if tg, ok := c.GetTelegramConfig(); ok && tg.Token == "" {
		errs = append(errs, errors.New("gateways.telegram.token is required when enabled"))
	}
	return errors.Join(errs...)
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}
