// Package vault implements the encrypted on-disk vault for sshvault: a
// single file holding the sealed profile store plus the cryptographic
// metadata needed to unlock it (format version, Argon2id parameters, salt,
// nonce).
//
// A vault has exactly one logical owner. Concurrent access from two
// processes is not coordinated and is undefined behavior; this is a
// documented limitation, not an oversight. Within one process the Session
// serializes all mutations.
//
// A forgotten passphrase permanently loses the data. There is no recovery
// mechanism; this is a deliberate design property.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/text/unicode/norm"

	"github.com/hmori/sshvault/pkg/audit"
	"github.com/hmori/sshvault/pkg/crypto"
	"github.com/hmori/sshvault/pkg/profile"
)

type options struct {
	kdf      crypto.Params
	audit    *audit.Logger
	autoLock time.Duration
}

// Option configures Create and Open.
type Option func(*options)

// WithKDFParams overrides the Argon2id parameters for a new vault. Open
// ignores it: existing vaults always use the parameters stored in their
// header.
func WithKDFParams(p crypto.Params) Option {
	return func(o *options) { o.kdf = p }
}

// WithAudit attaches an audit logger. Logging is best-effort and never
// fails a vault operation.
func WithAudit(l *audit.Logger) Option {
	return func(o *options) { o.audit = l }
}

// WithAutoLock closes the session after d of inactivity. Zero disables the
// idle timer.
func WithAutoLock(d time.Duration) Option {
	return func(o *options) { o.autoLock = d }
}

// Create initializes a new vault file at path: fresh random salt, empty
// profile store, initial encrypted write. It returns an unlocked session.
// Fails with ErrVaultExists if the file already exists.
func Create(path, passphrase string, opts ...Option) (*Session, error) {
	o := options{kdf: crypto.DefaultParams()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.kdf.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return nil, ErrVaultExists
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("vault: failed to stat vault file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("vault: failed to create vault directory: %w", err)
	}

	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: failed to generate salt: %w", err)
	}

	pw := normalizePassphrase(passphrase)
	key := crypto.DeriveKey(pw, salt, o.kdf)
	crypto.SecureWipe(pw)

	s := &Session{
		path:     path,
		params:   o.kdf,
		salt:     salt,
		key:      memguard.NewBufferFromBytes(key), // wipes key
		store:    profile.NewStore(),
		audit:    o.audit,
		autoLock: o.autoLock,
	}

	s.mu.Lock()
	err := s.persist()
	s.mu.Unlock()
	if err != nil {
		s.key.Destroy()
		return nil, err
	}

	s.bindAudit()
	s.auditSuccess(audit.OpVaultCreate, "")
	s.startIdleTimer()
	return s, nil
}

// Open unlocks an existing vault. Error mapping:
//
//   - missing file: ErrVaultNotFound
//   - bad magic, short header, unsupported version: ErrFormat
//   - wrong passphrase or tampered ciphertext: ErrAuthenticationFailed
//     (indistinguishable by design)
//   - decrypted payload that fails to parse: ErrFormat
//
// Key derivation is deliberately slow; callers with an interactive surface
// should keep it off their UI thread.
func Open(path, passphrase string, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("vault: failed to read vault file: %w", err)
	}

	hdr, ciphertext, err := decodeFile(data)
	if err != nil {
		return nil, err
	}

	if remaining, err := checkCooldown(path); err != nil {
		if errors.Is(err, ErrCooldownActive) {
			return nil, fmt.Errorf("%w: retry in %v", ErrCooldownActive, remaining.Round(time.Second))
		}
		return nil, err
	}

	pw := normalizePassphrase(passphrase)
	key := crypto.DeriveKey(pw, hdr.Salt, hdr.KDF)
	crypto.SecureWipe(pw)

	plaintext, err := crypto.Decrypt(key, ciphertext, hdr.Nonce)
	if err != nil {
		crypto.SecureWipe(key)
		if !errors.Is(err, crypto.ErrDecryptionFailed) && !errors.Is(err, crypto.ErrCiphertextTooShort) {
			return nil, fmt.Errorf("vault: failed to open vault: %w", err)
		}

		cooldown, recErr := recordFailedAttempt(path)
		if recErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record unlock attempt: %v\n", recErr)
		}
		if o.audit != nil {
			// The audit key derives from the vault key, which a failed
			// unlock never yields; the logger drops the event unless a
			// key is already bound from an earlier session.
			_ = o.audit.LogError(audit.OpVaultUnlockFailed, "", "authentication failed")
		}
		if cooldown > 0 {
			return nil, fmt.Errorf("%w: cooldown activated for %v", ErrTooManyAttempts, cooldown.Round(time.Second))
		}
		return nil, ErrAuthenticationFailed
	}

	store, perr := profile.Deserialize(plaintext)
	crypto.SecureWipe(plaintext)
	if perr != nil {
		crypto.SecureWipe(key)
		return nil, fmt.Errorf("%w: %v", ErrFormat, perr)
	}

	if err := clearLockState(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to clear lock state: %v\n", err)
	}

	s := &Session{
		path:     path,
		params:   hdr.KDF,
		salt:     hdr.Salt,
		key:      memguard.NewBufferFromBytes(key), // wipes key
		store:    store,
		audit:    o.audit,
		autoLock: o.autoLock,
	}

	s.bindAudit()
	s.auditSuccess(audit.OpVaultUnlock, "")
	s.startIdleTimer()
	return s, nil
}

// Exists reports whether a vault file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// normalizePassphrase applies Unicode NFC so the same passphrase typed on
// different platforms derives the same key.
func normalizePassphrase(passphrase string) []byte {
	return []byte(norm.NFC.String(passphrase))
}
