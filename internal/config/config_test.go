package config

import (
	"strings"
	"testing"
)

const validYAML = `
crm:
  base_url: https://crm.example.com/service
  username: svc_caseflow
  password: hunter2
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.CRM.BaseURL != "https://crm.example.com/service" {
		t.Errorf("BaseURL = %q", cfg.CRM.BaseURL)
	}
	if cfg.CRM.Username != "svc_caseflow" {
		t.Errorf("Username = %q", cfg.CRM.Username)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.DB.Host != "127.0.0.1" {
		t.Errorf("DB.Host = %q, want 127.0.0.1", cfg.DB.Host)
	}
	if cfg.DB.Port != 3306 {
		t.Errorf("DB.Port = %d, want 3306", cfg.DB.Port)
	}
	if cfg.DB.Database != "caseflow" {
		t.Errorf("DB.Database = %q, want caseflow", cfg.DB.Database)
	}
	if cfg.CRM.SessionTTLSec != 3600 {
		t.Errorf("SessionTTLSec = %d, want 3600", cfg.CRM.SessionTTLSec)
	}
	if cfg.CRM.ValidateTimeoutSec != 5 {
		t.Errorf("ValidateTimeoutSec = %d, want 5", cfg.CRM.ValidateTimeoutSec)
	}
	if cfg.CRM.CallTimeoutSec != 30 {
		t.Errorf("CallTimeoutSec = %d, want 30", cfg.CRM.CallTimeoutSec)
	}
	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.RetryDelaySec != 300 {
		t.Errorf("RetryDelaySec = %d, want 300", cfg.Sync.RetryDelaySec)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestParse_MissingCRM(t *testing.T) {
	_, err := Parse([]byte("db:\n  host: localhost\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"crm.base_url is required", "crm.username is required", "crm.password is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want to contain %q", err.Error(), want)
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("crm: [not a map"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err.Error())
	}
}

func TestParse_ExplicitOverrides(t *testing.T) {
	yaml := validYAML + `
db:
  host: db.internal
  port: 3307
  database: caseflow_prod
sync:
  max_attempts: 5
  retry_delay_sec: 60
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 3307 {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.Sync.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.RetryDelaySec != 60 {
		t.Errorf("RetryDelaySec = %d, want 60", cfg.Sync.RetryDelaySec)
	}
}
