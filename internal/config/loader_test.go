// Package config provides configuration management for the reconciliation tool.
package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_Success(t *testing.T) {
	path := writeTempConfig(t, `
datasources:
  nova:
    endpoint: "http://localhost:8774/v2.1"
    token: "test-token"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Datasources.Nova.Endpoint != "http://localhost:8774/v2.1" {
		t.Errorf("Nova endpoint = %v, want http://localhost:8774/v2.1", cfg.Datasources.Nova.Endpoint)
	}
	if cfg.Datasources.Nova.Token != "test-token" {
		t.Errorf("Nova token = %v, want test-token", cfg.Datasources.Nova.Token)
	}

	// Verify defaults
	if cfg.Remote.Shell != "ssh" {
		t.Errorf("Remote shell = %v, want ssh", cfg.Remote.Shell)
	}
	if len(cfg.Remote.Options) != 4 {
		t.Errorf("Remote options = %v, want 4 default options", cfg.Remote.Options)
	}
	if cfg.FanOut.Concurrency != 20 {
		t.Errorf("Concurrency = %v, want 20", cfg.FanOut.Concurrency)
	}
	if cfg.FanOut.BatchSize != 10 {
		t.Errorf("BatchSize = %v, want 10", cfg.FanOut.BatchSize)
	}
	if cfg.FanOut.HostTimeout != 30*time.Second {
		t.Errorf("HostTimeout = %v, want 30s", cfg.FanOut.HostTimeout)
	}
	if cfg.FanOut.Deadline != 5*time.Minute {
		t.Errorf("Deadline = %v, want 5m", cfg.FanOut.Deadline)
	}
	if cfg.Remediation.Kill {
		t.Error("Remediation.Kill should default to false (dry-run)")
	}
	if cfg.HTTP.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want 3", cfg.HTTP.Retry.MaxRetries)
	}
	if cfg.Report.Timezone != "Asia/Shanghai" {
		t.Errorf("Timezone = %v, want Asia/Shanghai", cfg.Report.Timezone)
	}
}

func TestLoad_InventoryFileOnly(t *testing.T) {
	path := writeTempConfig(t, `
datasources:
  inventory_file: "/tmp/inventory.yaml"
fanout:
  concurrency: 5
  batch_size: 5
  host_timeout: 5s
  deadline: 1m
remediation:
  kill: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Datasources.InventoryFile != "/tmp/inventory.yaml" {
		t.Errorf("InventoryFile = %v", cfg.Datasources.InventoryFile)
	}
	if cfg.FanOut.HostTimeout != 5*time.Second {
		t.Errorf("HostTimeout = %v, want 5s", cfg.FanOut.HostTimeout)
	}
	if !cfg.Remediation.Kill {
		t.Error("Remediation.Kill should be true")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Error("Load() should return error for empty path")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTempConfig(t, `
datasources:
  nova:
    endpoint: "http://localhost:8774/v2.1"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail without a Nova token or inventory file")
	}
	if _, ok := err.(ValidationErrors); !ok {
		t.Errorf("expected ValidationErrors, got %T", err)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	path := writeTempConfig(t, `
datasources:
  nova:
    endpoint: "http://localhost:8774/v2.1"
    token: "file-token"
`)

	t.Setenv("VMRECON_DATASOURCES_NOVA_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Datasources.Nova.Token != "env-token" {
		t.Errorf("Nova token = %v, want env-token (env override)", cfg.Datasources.Nova.Token)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	path := writeTempConfig(t, `
datasources:
  nova:
    endpoint: "http://localhost:8774/v2.1"
remediation:
  kill: false
`)

	// Without a token the file alone is invalid; the inventory override makes it valid.
	cfg, err := LoadWithOverrides(path, map[string]interface{}{
		"datasources.inventory_file": "/tmp/inventory.yaml",
		"remediation.kill":           true,
		"reconcile.hosts":            []string{"node01", "node02"},
	})
	if err != nil {
		t.Fatalf("LoadWithOverrides() error = %v", err)
	}

	if cfg.Datasources.InventoryFile != "/tmp/inventory.yaml" {
		t.Errorf("InventoryFile = %v", cfg.Datasources.InventoryFile)
	}
	if !cfg.Remediation.Kill {
		t.Error("Remediation.Kill override not applied")
	}
	if len(cfg.Reconcile.Hosts) != 2 {
		t.Errorf("Reconcile.Hosts = %v", cfg.Reconcile.Hosts)
	}
}

func TestLoad_EnvironmentInventoryFile(t *testing.T) {
	path := writeTempConfig(t, "logging:\n  level: debug\n")

	t.Setenv("VMRECON_DATASOURCES_INVENTORY_FILE", "/srv/inventory.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Datasources.InventoryFile != "/srv/inventory.yaml" {
		t.Errorf("InventoryFile = %v, want env value", cfg.Datasources.InventoryFile)
	}
}
