// Package config provides YAML-based configuration loading for caseflow.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level caseflow configuration, loaded from config.yaml.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	CRM    CRMConfig    `yaml:"crm"`
	Sync   SyncConfig   `yaml:"sync"`
	Notify NotifyConfig `yaml:"notify"`
	Server ServerConfig `yaml:"server"`
}

// DBConfig holds connection settings for the MySQL store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// CRMConfig holds credentials and timeouts for the legacy CRM service.
type CRMConfig struct {
	BaseURL            string `yaml:"base_url"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	SessionTTLSec      int    `yaml:"session_ttl_sec"`
	ValidateTimeoutSec int    `yaml:"validate_timeout_sec"`
	CallTimeoutSec     int    `yaml:"call_timeout_sec"`
}

// SyncConfig controls the external sync worker's retry policy and schedule.
type SyncConfig struct {
	MaxAttempts   int    `yaml:"max_attempts"`
	RetryDelaySec int    `yaml:"retry_delay_sec"`
	PollSpec      string `yaml:"poll_spec"`  // 5-field cron expression
	SweepSpec     string `yaml:"sweep_spec"` // blocking recompute sweep
}

// NotifyConfig selects notification delivery adapters.
type NotifyConfig struct {
	Command        string `yaml:"command"` // shell command template
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// ServerConfig holds the JSON API listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "caseflow"
	}
	if c.CRM.SessionTTLSec == 0 {
		c.CRM.SessionTTLSec = 3600
	}
	if c.CRM.ValidateTimeoutSec == 0 {
		c.CRM.ValidateTimeoutSec = 5
	}
	if c.CRM.CallTimeoutSec == 0 {
		c.CRM.CallTimeoutSec = 30
	}
	if c.Sync.MaxAttempts == 0 {
		c.Sync.MaxAttempts = 3
	}
	if c.Sync.RetryDelaySec == 0 {
		c.Sync.RetryDelaySec = 300
	}
	if c.Sync.PollSpec == "" {
		c.Sync.PollSpec = "* * * * *"
	}
	if c.Sync.SweepSpec == "" {
		c.Sync.SweepSpec = "0 3 * * *"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.CRM.BaseURL == "" {
		errs = append(errs, "crm.base_url is required")
	}
	if c.CRM.Username == "" {
		errs = append(errs, "crm.username is required")
	}
	if c.CRM.Password == "" {
		errs = append(errs, "crm.password is required")
	}
	if c.Sync.MaxAttempts < 1 {
		errs = append(errs, "sync.max_attempts must be at least 1")
	}
	if c.Sync.RetryDelaySec < 0 {
		errs = append(errs, "sync.retry_delay_sec must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
