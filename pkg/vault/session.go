package vault

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/hmori/sshvault/pkg/audit"
	"github.com/hmori/sshvault/pkg/crypto"
	"github.com/hmori/sshvault/pkg/profile"
)

// Session is an unlocked vault. It holds the derived key in locked memory
// and the decrypted profile store, and persists the whole vault after every
// successful mutation. All methods are safe for concurrent use within one
// process.
//
// Close destroys the key material. A closed session rejects every
// operation with ErrSessionClosed; unlock again with Open.
type Session struct {
	mu     sync.Mutex
	path   string
	params crypto.Params
	salt   []byte
	key    *memguard.LockedBuffer
	store  *profile.Store
	audit  *audit.Logger

	autoLock time.Duration
	timer    *time.Timer
	closed   bool
}

// Path returns the vault file location.
func (s *Session) Path() string {
	return s.path
}

// AddProfile stores a new server profile and returns its redacted form.
func (s *Session) AddProfile(p profile.ServerProfile) (profile.ServerProfile, error) {
	var added profile.ServerProfile
	err := s.mutate(audit.OpProfileAdd, func() (string, error) {
		id, err := s.store.Add(p)
		if err != nil {
			return p.Name, err
		}
		added, err = s.store.Find(id)
		return added.Name, err
	})
	return added, err
}

// UpdateProfile applies partial changes to the profile with the given ID.
func (s *Session) UpdateProfile(id string, ch profile.Changes) (profile.ServerProfile, error) {
	var updated profile.ServerProfile
	err := s.mutate(audit.OpProfileUpdate, func() (string, error) {
		if err := s.store.Update(id, ch); err != nil {
			return s.profileName(id), err
		}
		var err error
		updated, err = s.store.Find(id)
		return updated.Name, err
	})
	return updated, err
}

// RenameProfile changes a profile's name, enforcing uniqueness. The audit
// event records the new name.
func (s *Session) RenameProfile(id, newName string) (profile.ServerProfile, error) {
	var renamed profile.ServerProfile
	err := s.mutate(audit.OpProfileRename, func() (string, error) {
		if err := s.store.Rename(id, newName); err != nil {
			return s.profileName(id), err
		}
		var err error
		renamed, err = s.store.Find(id)
		return renamed.Name, err
	})
	return renamed, err
}

// SetServices replaces a profile's favorite service list.
func (s *Session) SetServices(id string, services []string) (profile.ServerProfile, error) {
	var updated profile.ServerProfile
	err := s.mutate(audit.OpProfileUpdate, func() (string, error) {
		if err := s.store.SetServices(id, services); err != nil {
			return s.profileName(id), err
		}
		var err error
		updated, err = s.store.Find(id)
		return updated.Name, err
	})
	return updated, err
}

// RemoveProfile deletes the profile with the given ID.
func (s *Session) RemoveProfile(id string) error {
	return s.mutate(audit.OpProfileRemove, func() (string, error) {
		name := s.profileName(id)
		return name, s.store.Remove(id)
	})
}

// ListProfiles returns all profiles in insertion order with passwords
// blanked.
func (s *Session) ListProfiles() ([]profile.ServerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()
	s.auditSuccess(audit.OpProfileList, "")
	return s.store.List(), nil
}

// GetProfile returns the redacted profile with the given ID.
func (s *Session) GetProfile(id string) (profile.ServerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return profile.ServerProfile{}, ErrSessionClosed
	}
	s.touch()
	return s.store.Find(id)
}

// GetProfileByName returns the redacted profile with the given name.
func (s *Session) GetProfileByName(name string) (profile.ServerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return profile.ServerProfile{}, ErrSessionClosed
	}
	s.touch()
	return s.store.FindByName(name)
}

// Credentials returns the profile with its password intact. Every call is
// audited as a reveal.
func (s *Session) Credentials(id string) (profile.ServerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return profile.ServerProfile{}, ErrSessionClosed
	}
	s.touch()
	p, err := s.store.Credentials(id)
	if err != nil {
		return profile.ServerProfile{}, err
	}
	s.auditSuccess(audit.OpProfileReveal, p.Name)
	return p, nil
}

// ChangePassphrase re-encrypts the vault under a new passphrase with a
// fresh random salt. The old salt is retired with the old passphrase so a
// precomputed attack against it buys nothing against the new key. The
// current passphrase must verify first.
func (s *Session) ChangePassphrase(current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.touch()

	pw := normalizePassphrase(current)
	check := crypto.DeriveKey(pw, s.salt, s.params)
	crypto.SecureWipe(pw)
	ok := subtle.ConstantTimeCompare(check, s.key.Bytes()) == 1
	crypto.SecureWipe(check)
	if !ok {
		s.auditError(audit.OpVaultRekey, "", "authentication failed")
		return ErrAuthenticationFailed
	}

	newSalt := make([]byte, SaltLength)
	if _, err := rand.Read(newSalt); err != nil {
		return fmt.Errorf("vault: failed to generate salt: %w", err)
	}
	pw = normalizePassphrase(next)
	newKey := crypto.DeriveKey(pw, newSalt, s.params)
	crypto.SecureWipe(pw)

	oldSalt, oldKey := s.salt, s.key
	s.salt = newSalt
	s.key = memguard.NewBufferFromBytes(newKey) // wipes newKey

	if err := s.persist(); err != nil {
		s.key.Destroy()
		s.salt, s.key = oldSalt, oldKey
		return err
	}

	oldKey.Destroy()
	s.bindAudit()
	s.auditSuccess(audit.OpVaultRekey, "")
	return nil
}

// Close locks the vault: destroys the key material and drops the decrypted
// store. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.auditSuccess(audit.OpVaultLock, "")
	s.key.Destroy()
	s.store = nil
	s.closed = true
	return nil
}

// mutate runs fn against the store and persists the result. fn returns the
// profile's display name for the audit event, so every event for an entity
// carries the same identifier regardless of operation. On persistence
// failure the store is rolled back to its pre-mutation snapshot, so memory
// and disk never disagree.
func (s *Session) mutate(op string, fn func() (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.touch()

	snapshot := s.store.Clone()
	name, err := fn()
	if err != nil {
		s.auditError(op, name, err.Error())
		return err
	}
	if err := s.persist(); err != nil {
		s.store = snapshot
		s.auditError(op, name, err.Error())
		return err
	}
	s.auditSuccess(op, name)
	return nil
}

// profileName resolves an ID to a display name for audit events. Callers
// must hold s.mu.
func (s *Session) profileName(id string) string {
	p, err := s.store.Find(id)
	if err != nil {
		return ""
	}
	return p.Name
}

// persist serializes, encrypts, and atomically writes the vault file.
// Transient write failures get one retry; anything else surfaces
// immediately. Callers must hold s.mu.
func (s *Session) persist() error {
	plaintext, err := s.store.Serialize()
	if err != nil {
		return fmt.Errorf("vault: failed to serialize profiles: %w", err)
	}
	defer crypto.SecureWipe(plaintext)

	ciphertext, nonce, err := crypto.Encrypt(s.key.Bytes(), plaintext)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt vault: %w", err)
	}

	data := encodeFile(fileHeader{
		Version: FormatVersion,
		KDF:     s.params,
		Salt:    s.salt,
		Nonce:   nonce,
	}, ciphertext)

	if err := writeFileAtomic(s.path, data); err != nil {
		if retryErr := writeFileAtomic(s.path, data); retryErr != nil {
			return fmt.Errorf("vault: failed to write vault file: %w", retryErr)
		}
	}
	return nil
}

// touch resets the idle timer. Callers must hold s.mu.
func (s *Session) touch() {
	if s.timer != nil {
		s.timer.Reset(s.autoLock)
	}
}

func (s *Session) startIdleTimer() {
	if s.autoLock <= 0 {
		return
	}
	s.mu.Lock()
	s.timer = time.AfterFunc(s.autoLock, func() { _ = s.Close() })
	s.mu.Unlock()
}

// bindAudit derives the audit HMAC key from the current vault key.
func (s *Session) bindAudit() {
	if s.audit == nil {
		return
	}
	if err := s.audit.SetKey(s.key.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to key audit log: %v\n", err)
	}
}

func (s *Session) auditSuccess(op, name string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogSuccess(op, name); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write audit log: %v\n", err)
	}
}

func (s *Session) auditError(op, name, detail string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogError(op, name, detail); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write audit log: %v\n", err)
	}
}
