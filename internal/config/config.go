// Package config loads and validates datescout configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// The search home, restricted to the hardcoded publication-date range
// filter (1994–2021). The whole run queries through this surface.
const defaultHomeURL = "https://www.google.com/?gl=us&tbs=cdr%3A1%2Ccd_min%3A1994%2Ccd_max%3A2021"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Browser BrowserConfig `mapstructure:"browser"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// InputConfig locates the url_id/url rows to process.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig selects and locates the result store.
type OutputConfig struct {
	Path    string `mapstructure:"path"`
	Backend string `mapstructure:"backend"`
}

// BrowserConfig governs the automated browser session.
type BrowserConfig struct {
	Headless              bool   `mapstructure:"headless"`
	NavTimeoutSeconds     int    `mapstructure:"nav_timeout_seconds"`
	ConsentTimeoutSeconds int    `mapstructure:"consent_timeout_seconds"`
	KeyDelayMs            int    `mapstructure:"key_delay_ms"`
	HomeURL               string `mapstructure:"home_url"`
}

// ScraperConfig governs pacing and detection handling.
type ScraperConfig struct {
	DelaySeconds          int `mapstructure:"delay_seconds"`
	DelayWithProxySeconds int `mapstructure:"delay_with_proxy_seconds"`
	BlockCooldownSeconds  int `mapstructure:"block_cooldown_seconds"`
	RotateSettleSeconds   int `mapstructure:"rotate_settle_seconds"`
}

// ProxyConfig points at the optional external proxy configuration file.
// An empty path disables proxying and rotation entirely.
type ProxyConfig struct {
	ConfigFile string `mapstructure:"config_file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig optionally exposes Prometheus collectors over HTTP.
// An empty listen address disables the listener.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds a Config from disk/environment. Validation is the caller's
// responsibility: CLI flag overrides land after loading, so a config that is
// incomplete on disk may still be complete by the time it is used.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DATESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.path", "url_dates.tsv")
	v.SetDefault("output.backend", "tsv")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 300)
	v.SetDefault("browser.consent_timeout_seconds", 30)
	v.SetDefault("browser.key_delay_ms", 50)
	v.SetDefault("browser.home_url", defaultHomeURL)
	v.SetDefault("scraper.delay_seconds", 180)
	v.SetDefault("scraper.delay_with_proxy_seconds", 60)
	v.SetDefault("scraper.block_cooldown_seconds", 7200)
	v.SetDefault("scraper.rotate_settle_seconds", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("input.path must be set")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must be set")
	}
	if c.Output.Backend != "tsv" && c.Output.Backend != "sqlite" {
		return fmt.Errorf("output.backend must be tsv or sqlite, got %q", c.Output.Backend)
	}
	if c.Browser.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Browser.HomeURL == "" {
		return fmt.Errorf("browser.home_url must be set")
	}
	if c.Scraper.DelaySeconds <= 0 {
		return fmt.Errorf("scraper.delay_seconds must be > 0")
	}
	if c.Scraper.DelayWithProxySeconds <= 0 {
		return fmt.Errorf("scraper.delay_with_proxy_seconds must be > 0")
	}
	if c.Scraper.BlockCooldownSeconds <= 0 {
		return fmt.Errorf("scraper.block_cooldown_seconds must be > 0")
	}
	return nil
}

// NavTimeout returns the navigation ceiling as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// ConsentTimeout returns the consent-dismissal ceiling as a duration.
func (c Config) ConsentTimeout() time.Duration {
	return time.Duration(c.Browser.ConsentTimeoutSeconds) * time.Second
}

// KeyDelay returns the per-character typing cadence as a duration.
func (c Config) KeyDelay() time.Duration {
	return time.Duration(c.Browser.KeyDelayMs) * time.Millisecond
}

// Delay returns the terms-of-use pacing floor, which is shorter when a
// proxy carries the traffic.
func (c Config) Delay(proxied bool) time.Duration {
	if proxied {
		return time.Duration(c.Scraper.DelayWithProxySeconds) * time.Second
	}
	return time.Duration(c.Scraper.DelaySeconds) * time.Second
}

// BlockCooldown returns the whole-session suspension applied on detection.
func (c Config) BlockCooldown() time.Duration {
	return time.Duration(c.Scraper.BlockCooldownSeconds) * time.Second
}

// RotateSettle returns the post-rotation settle interval.
func (c Config) RotateSettle() time.Duration {
	return time.Duration(c.Scraper.RotateSettleSeconds) * time.Second
}
