package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  addr: ":9090"
  public_url: "https://grid.example.com/"
cache:
  kind: memory
storage:
  driver: memory
login:
  issuer: "https://grid.example.com"
  secret: "file-secret"
services:
  - identifier: "https://inventory.example.com"
    kind: remote
    capabilities: ["inventory:read"]
    request_url: "https://inventory.example.com/oauth/request"
    authorize_url: "https://inventory.example.com/oauth/authorize"
    access_url: "https://inventory.example.com/oauth/access"
  - identifier: "https://login.example.com"
    kind: local
    capabilities: ["login"]
    handlers:
      login: "login_handler"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr mismatch: %q", cfg.Server.Addr)
	}
	// El trailing slash del public_url se normaliza.
	if cfg.Server.PublicURL != "https://grid.example.com" {
		t.Fatalf("public url mismatch: %q", cfg.Server.PublicURL)
	}
	if len(cfg.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(cfg.Services))
	}
	// El orden del archivo se preserva.
	if cfg.Services[0].Identifier != "https://inventory.example.com" {
		t.Fatalf("service order not preserved: %v", cfg.Services[0].Identifier)
	}
	if cfg.Services[1].Kind != "local" || cfg.Services[1].Handlers["login"] != "login_handler" {
		t.Fatalf("local service mismatch: %+v", cfg.Services[1])
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRIDBRIDGE_ADDR", ":7070")
	t.Setenv("GRIDBRIDGE_LOGIN_SECRET", "env-secret")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env override lost: %q", cfg.Server.Addr)
	}
	if cfg.Login.Secret != "env-secret" {
		t.Fatalf("secret override lost: %q", cfg.Login.Secret)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8083" {
		t.Fatalf("default addr mismatch: %q", cfg.Server.Addr)
	}
	if cfg.Server.PublicURL != "http://localhost:8083" {
		t.Fatalf("default public url mismatch: %q", cfg.Server.PublicURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/no/existe/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseDuration(t *testing.T) {
	if got := ParseDuration("30s", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %v", got)
	}
	if got := ParseDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %v", got)
	}
	if got := ParseDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %v", got)
	}
}
