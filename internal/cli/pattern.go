// Package cli provides shared helpers for the sshvault commands.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hmori/sshvault/pkg/profile"
)

// FilterProfiles selects the profiles whose names match pattern. A pattern
// with glob characters (*?[) matches by glob; anything else matches exactly.
// Insertion order is preserved.
func FilterProfiles(profiles []profile.ServerProfile, pattern string) ([]profile.ServerProfile, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	if !strings.ContainsAny(pattern, "*?[") {
		for _, p := range profiles {
			if p.Name == pattern {
				return []profile.ServerProfile{p}, nil
			}
		}
		return nil, fmt.Errorf("no profile named %q", pattern)
	}

	var matches []profile.ServerProfile
	for _, p := range profiles {
		ok, err := filepath.Match(pattern, p.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no profiles match pattern %q", pattern)
	}
	return matches, nil
}
