// Package crypto provides the cryptographic primitives for sshvault.
//
// This package implements AES-256-GCM authenticated encryption and Argon2id
// key derivation following OWASP recommendations.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption
//   - Argon2id key derivation with per-vault persisted parameters
//   - Cryptographically secure random nonce generation
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	// Derive a key from a passphrase
//	salt := make([]byte, 16)
//	rand.Read(salt)
//	key := crypto.DeriveKey([]byte("passphrase"), salt, crypto.DefaultParams())
//
//	// Encrypt data
//	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
//
//	// Decrypt data
//	plaintext, err := crypto.Decrypt(key, ciphertext, nonce)
//
//	// Securely wipe sensitive data
//	crypto.SecureWipe(key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

const (
	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12
)

// Default Argon2id parameters following OWASP recommendations.
const (
	// DefaultTime is the default number of Argon2id iterations.
	DefaultTime = 3

	// DefaultMemoryKiB is the default memory cost in KiB (64MB).
	DefaultMemoryKiB = 64 * 1024

	// DefaultParallelism is the default degree of parallelism.
	DefaultParallelism = 4
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption or authentication tag verification failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrInvalidParams indicates out-of-range Argon2id parameters.
	ErrInvalidParams = errors.New("crypto: invalid key derivation parameters")
)

// Params holds the Argon2id cost parameters for a vault. They are persisted
// in the vault header so that a vault created with older defaults keeps
// unlocking after the defaults are raised.
type Params struct {
	// Time is the number of iterations.
	Time uint32
	// MemoryKiB is the memory cost in KiB.
	MemoryKiB uint32
	// Parallelism is the degree of parallelism.
	Parallelism uint8
}

// DefaultParams returns the Argon2id parameters used for new vaults.
func DefaultParams() Params {
	return Params{
		Time:        DefaultTime,
		MemoryKiB:   DefaultMemoryKiB,
		Parallelism: DefaultParallelism,
	}
}

// Validate checks that the parameters are within the ranges accepted by
// Argon2id. Argon2 requires at least 8 KiB of memory per lane.
func (p Params) Validate() error {
	if p.Time == 0 {
		return fmt.Errorf("%w: time must be at least 1", ErrInvalidParams)
	}
	if p.Parallelism == 0 {
		return fmt.Errorf("%w: parallelism must be at least 1", ErrInvalidParams)
	}
	if p.MemoryKiB < 8*uint32(p.Parallelism) {
		return fmt.Errorf("%w: memory must be at least %d KiB", ErrInvalidParams, 8*uint32(p.Parallelism))
	}
	return nil
}

// DeriveKey derives a 256-bit encryption key from a passphrase using Argon2id.
//
// The salt should be at least 16 bytes of cryptographically secure random
// data. Derivation is deterministic: the same passphrase, salt and params
// always yield the same key, which is what allows verification-by-decryption
// without ever storing the passphrase.
func DeriveKey(passphrase, salt []byte, p Params) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Parallelism, KeyLength)
}

// Encrypt encrypts plaintext using AES-256-GCM authenticated encryption.
//
// A fresh 12-byte nonce is generated with crypto/rand for every call; the
// nonce must be stored alongside the ciphertext and is required for
// decryption. The authentication tag is appended to the ciphertext.
func Encrypt(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	if len(key) != KeyLength {
		return nil, nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// The authentication tag is verified before any plaintext is returned. Any
// tampering, truncation or wrong key yields ErrDecryptionFailed, never
// partial plaintext.
func Decrypt(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
// This is critical for securely destroying key material and plaintext buffers.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
