// Package profile provides the in-memory data model for sshvault: SSH server
// connection profiles and the ordered store that holds them while a vault is
// unlocked. The store only ever exists in decrypted form inside an unlocked
// session; serialization produces the canonical plaintext that the vault
// layer seals.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultPort is used when a profile is added without a port.
	DefaultPort = 22

	// MaxNameLength bounds display names.
	MaxNameLength = 128
)

// Validation errors, surfaced to the caller for correction.
var (
	ErrDuplicateName = errors.New("profile: a profile with this name already exists")
	ErrNotFound      = errors.New("profile: profile not found")
	ErrInvalidPort   = errors.New("profile: port must be between 1 and 65535")
	ErrEmptyName     = errors.New("profile: name must not be empty")
	ErrNameTooLong   = errors.New("profile: name too long")
	ErrEmptyHost     = errors.New("profile: host must not be empty")

	// ErrFormat indicates malformed or unsupported serialized store data.
	// It is deliberately distinct from the vault's authentication failure:
	// ErrFormat means the file decrypted fine but its structure is broken.
	ErrFormat = errors.New("profile: malformed profile data")
)

// ServerProfile is a single SSH server entry.
//
// ID is assigned by the store on Add and never changes afterwards. Name is
// unique within a store. Password is the only secret field; List and Find
// return it blank, Credentials returns it filled.
type ServerProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Services  []string  `json:"services,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Changes describes a partial profile update. Nil fields are left unchanged.
type Changes struct {
	Name     *string
	Host     *string
	Port     *int
	Username *string
	Password *string
	Services *[]string
}

// NormalizeName trims surrounding whitespace and applies Unicode NFC so that
// visually identical names cannot coexist.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizeServices trims entries, drops empties and removes duplicates
// while preserving first-occurrence order.
func NormalizeServices(services []string) []string {
	if len(services) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(services))
	out := make([]string, 0, len(services))
	for _, s := range services {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validate checks field invariants. The profile must already be normalized.
func (p *ServerProfile) validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if len(p.Name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrNameTooLong, len(p.Name), MaxNameLength)
	}
	if p.Host == "" {
		return ErrEmptyHost
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, p.Port)
	}
	return nil
}

// redacted returns a copy with the password blanked and the services slice
// detached from the store's backing array.
func (p ServerProfile) redacted() ServerProfile {
	c := p
	c.Password = ""
	c.Services = copyServices(p.Services)
	return c
}

// clone returns a full copy including the password.
func (p ServerProfile) clone() ServerProfile {
	c := p
	c.Services = copyServices(p.Services)
	return c
}

func copyServices(services []string) []string {
	if services == nil {
		return nil
	}
	out := make([]string, len(services))
	copy(out, services)
	return out
}
