// Package proxy implements proxy configuration, periodic rotation, and
// rotation health checks.
package proxy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config describes an authenticated rotating proxy. Field names follow the
// external proxy.conf JSON contract. Absence of a Config (nil) disables
// proxying and rotation entirely.
type Config struct {
	Address     string `json:"PROXY_ADDRESS"`
	Port        string `json:"PROXY_PORT"`
	User        string `json:"PROXY_USER"`
	Password    string `json:"PROXY_PASSWORD"`
	RotateURL   string `json:"PROXY_ROTATE"`
	StatusCheck string `json:"PROXY_STATUS"`
}

// LoadConfig reads and validates a proxy configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxy config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse proxy config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("proxy config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate enforces the fields the session and rotator rely on.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("PROXY_ADDRESS must be set")
	}
	if c.Port == "" {
		return fmt.Errorf("PROXY_PORT must be set")
	}
	if c.RotateURL == "" {
		return fmt.Errorf("PROXY_ROTATE must be set")
	}
	if _, err := ParseHealthCheck(c.StatusCheck); err != nil {
		return err
	}
	return nil
}

// Server returns the address:port pair in the form the browser's
// --proxy-server flag expects.
func (c *Config) Server() string {
	return c.Address + ":" + c.Port
}
