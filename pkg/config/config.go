// Package config loads the optional sshvault configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hmori/sshvault/pkg/crypto"
)

// Config holds user settings. Every field has a working default; the file
// itself is optional.
type Config struct {
	// VaultPath is the location of the vault file.
	VaultPath string `yaml:"vault_path"`

	// AuditLog enables the tamper-evident operation log.
	AuditLog bool `yaml:"audit_log"`

	// AuditLogPath overrides the audit database location. Defaults to the
	// vault path with a .audit.db suffix.
	AuditLogPath string `yaml:"audit_log_path"`

	// AutoLock closes an idle session after this duration. Zero disables it.
	AutoLock Duration `yaml:"auto_lock"`

	// KDF tunes key derivation cost for new vaults. Existing vaults keep
	// the parameters stored in their header.
	KDF KDFConfig `yaml:"kdf"`
}

// Duration accepts Go duration strings like "5m" or "90s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// KDFConfig mirrors crypto.Params in the config file. Zero fields fall back
// to the defaults.
type KDFConfig struct {
	Time        uint32 `yaml:"time"`
	MemoryKiB   uint32 `yaml:"memory_kib"`
	Parallelism uint8  `yaml:"parallelism"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		VaultPath: filepath.Join(home, ".sshvault", "vault.svlt"),
		AuditLog:  false,
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".sshvault", "config.yaml")
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. A file that exists but fails to parse or validate is
// an error; silently ignoring it would mask typos.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// KDFParams resolves the configured KDF settings against the defaults.
func (c *Config) KDFParams() crypto.Params {
	p := crypto.DefaultParams()
	if c.KDF.Time > 0 {
		p.Time = c.KDF.Time
	}
	if c.KDF.MemoryKiB > 0 {
		p.MemoryKiB = c.KDF.MemoryKiB
	}
	if c.KDF.Parallelism > 0 {
		p.Parallelism = c.KDF.Parallelism
	}
	return p
}

// AuditPath resolves the audit database location.
func (c *Config) AuditPath() string {
	if c.AuditLogPath != "" {
		return c.AuditLogPath
	}
	return c.VaultPath + ".audit.db"
}

func (c *Config) validate() error {
	if c.VaultPath == "" {
		return fmt.Errorf("vault_path must not be empty")
	}
	if c.AutoLock < 0 {
		return fmt.Errorf("auto_lock must not be negative")
	}
	return c.KDFParams().Validate()
}
