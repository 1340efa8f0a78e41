package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hmori/sshvault/pkg/crypto"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VaultPath == "" {
		t.Error("default VaultPath is empty")
	}
	if cfg.AuditLog {
		t.Error("audit log enabled by default")
	}
	if cfg.KDFParams() != crypto.DefaultParams() {
		t.Errorf("KDFParams() = %+v, want defaults", cfg.KDFParams())
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
vault_path: /tmp/custom.svlt
audit_log: true
auto_lock: 5m
kdf:
  time: 4
  memory_kib: 131072
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VaultPath != "/tmp/custom.svlt" {
		t.Errorf("VaultPath = %q", cfg.VaultPath)
	}
	if !cfg.AuditLog {
		t.Error("AuditLog = false, want true")
	}
	if time.Duration(cfg.AutoLock) != 5*time.Minute {
		t.Errorf("AutoLock = %v, want 5m", time.Duration(cfg.AutoLock))
	}

	p := cfg.KDFParams()
	if p.Time != 4 || p.MemoryKiB != 131072 {
		t.Errorf("KDFParams() = %+v", p)
	}
	if p.Parallelism != crypto.DefaultParams().Parallelism {
		t.Errorf("Parallelism = %d, want default", p.Parallelism)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "vault_path: [unclosed"},
		{"empty vault path", `vault_path: ""`},
		{"negative auto lock", "auto_lock: -1m"},
		{"kdf memory below floor", "kdf:\n  memory_kib: 4\n  parallelism: 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestAuditPath(t *testing.T) {
	cfg := &Config{VaultPath: "/data/v.svlt"}
	if got := cfg.AuditPath(); got != "/data/v.svlt.audit.db" {
		t.Errorf("AuditPath() = %q", got)
	}
	cfg.AuditLogPath = "/elsewhere/audit.db"
	if got := cfg.AuditPath(); got != "/elsewhere/audit.db" {
		t.Errorf("AuditPath() with override = %q", got)
	}
}
