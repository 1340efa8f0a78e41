package profile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// storeVersion is the version of the serialized plaintext structure. It is
// independent of the vault file format version: a future vault may carry an
// older store payload and vice versa.
const storeVersion = 1

// Store is an ordered collection of server profiles. Insertion order is
// preserved for display. Store is not safe for concurrent use; the vault
// session serializes access to it.
type Store struct {
	profiles []ServerProfile
}

// storeDocument is the canonical serialized form of a Store.
type storeDocument struct {
	Version  int             `json:"version"`
	Profiles []ServerProfile `json:"profiles"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of profiles in the store.
func (s *Store) Len() int {
	return len(s.profiles)
}

// Add validates and appends a profile, assigning it a fresh ID and
// timestamps. A zero Port defaults to 22. Returns the assigned ID.
func (s *Store) Add(p ServerProfile) (string, error) {
	p.Name = NormalizeName(p.Name)
	p.Host = NormalizeName(p.Host)
	p.Services = NormalizeServices(p.Services)
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	if s.nameTaken(p.Name, "") {
		return "", fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}

	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.profiles = append(s.profiles, p)
	return p.ID, nil
}

// Update applies a partial update to the profile with the given ID. Name
// changes are checked for uniqueness against the other profiles. The ID and
// CreatedAt fields are immutable.
func (s *Store) Update(id string, c Changes) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}

	updated := s.profiles[i].clone()
	if c.Name != nil {
		updated.Name = NormalizeName(*c.Name)
	}
	if c.Host != nil {
		updated.Host = NormalizeName(*c.Host)
	}
	if c.Port != nil {
		updated.Port = *c.Port
	}
	if c.Username != nil {
		updated.Username = *c.Username
	}
	if c.Password != nil {
		updated.Password = *c.Password
	}
	if c.Services != nil {
		updated.Services = NormalizeServices(*c.Services)
	}

	if err := updated.validate(); err != nil {
		return err
	}
	if s.nameTaken(updated.Name, id) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, updated.Name)
	}

	updated.UpdatedAt = time.Now().UTC()
	s.profiles[i] = updated
	return nil
}

// Rename changes a profile's display name, enforcing uniqueness.
func (s *Store) Rename(id, newName string) error {
	return s.Update(id, Changes{Name: &newName})
}

// SetServices replaces a profile's favorite services list.
func (s *Store) SetServices(id string, services []string) error {
	return s.Update(id, Changes{Services: &services})
}

// Remove deletes the profile with the given ID.
func (s *Store) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	return nil
}

// List returns all profiles in insertion order with passwords redacted.
func (s *Store) List() []ServerProfile {
	out := make([]ServerProfile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.redacted()
	}
	return out
}

// Find returns the profile with the given ID, password redacted.
func (s *Store) Find(id string) (ServerProfile, error) {
	i := s.index(id)
	if i < 0 {
		return ServerProfile{}, ErrNotFound
	}
	return s.profiles[i].redacted(), nil
}

// FindByName returns the profile with the given display name, password
// redacted. The name is normalized before comparison.
func (s *Store) FindByName(name string) (ServerProfile, error) {
	name = NormalizeName(name)
	for _, p := range s.profiles {
		if p.Name == name {
			return p.redacted(), nil
		}
	}
	return ServerProfile{}, ErrNotFound
}

// Credentials returns the full profile including the password. Callers are
// expected to hand the password to the SSH client at the moment of use and
// not retain it.
func (s *Store) Credentials(id string) (ServerProfile, error) {
	i := s.index(id)
	if i < 0 {
		return ServerProfile{}, ErrNotFound
	}
	return s.profiles[i].clone(), nil
}

// Clone returns a deep copy of the store. The vault session uses it to roll
// back in-memory state when a persist fails.
func (s *Store) Clone() *Store {
	c := &Store{profiles: make([]ServerProfile, len(s.profiles))}
	for i, p := range s.profiles {
		c.profiles[i] = p.clone()
	}
	return c
}

// Serialize encodes the store into its canonical byte form. The encoding is
// deterministic for a given store state.
func (s *Store) Serialize() ([]byte, error) {
	doc := storeDocument{
		Version:  storeVersion,
		Profiles: s.profiles,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to serialize store: %w", err)
	}
	return data, nil
}

// Deserialize parses serialized store data. Malformed structure, an unknown
// version, or broken invariants (duplicate names or IDs, invalid ports) all
// yield ErrFormat.
func Deserialize(data []byte) (*Store, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrFormat)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if doc.Version != storeVersion {
		return nil, fmt.Errorf("%w: unsupported store version %d", ErrFormat, doc.Version)
	}

	names := make(map[string]struct{}, len(doc.Profiles))
	ids := make(map[string]struct{}, len(doc.Profiles))
	for i := range doc.Profiles {
		p := &doc.Profiles[i]
		if p.ID == "" {
			return nil, fmt.Errorf("%w: profile %d has no ID", ErrFormat, i)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("%w: profile %q: %v", ErrFormat, p.ID, err)
		}
		if _, dup := ids[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate profile ID %q", ErrFormat, p.ID)
		}
		if _, dup := names[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile name %q", ErrFormat, p.Name)
		}
		ids[p.ID] = struct{}{}
		names[p.Name] = struct{}{}
	}

	return &Store{profiles: doc.Profiles}, nil
}

// index returns the position of the profile with the given ID, or -1.
func (s *Store) index(id string) int {
	for i, p := range s.profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// nameTaken reports whether a normalized name is used by any profile other
// than excludeID.
func (s *Store) nameTaken(name, excludeID string) bool {
	for _, p := range s.profiles {
		if p.ID != excludeID && p.Name == name {
			return true
		}
	}
	return false
}
