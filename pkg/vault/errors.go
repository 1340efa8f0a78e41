package vault

import "errors"

// Errors returned by vault operations.
var (
	// ErrVaultExists indicates Create was called for a path that already
	// holds a vault file.
	ErrVaultExists = errors.New("vault: vault already exists at this path")

	// ErrVaultNotFound indicates the vault file does not exist.
	ErrVaultNotFound = errors.New("vault: vault not found at this path")

	// ErrAuthenticationFailed indicates the passphrase is wrong or the
	// ciphertext was tampered with. The two cases are deliberately
	// indistinguishable: authenticated encryption provides no oracle that
	// could tell a guesser which one it hit.
	ErrAuthenticationFailed = errors.New("vault: authentication failed: wrong passphrase or corrupted vault")

	// ErrFormat indicates the file is not a vault file or uses an
	// unsupported format version.
	ErrFormat = errors.New("vault: unrecognized or unsupported vault file format")

	// ErrSessionClosed indicates the session was locked and its key
	// material destroyed.
	ErrSessionClosed = errors.New("vault: session is closed")

	// ErrTooManyAttempts indicates the failed-unlock threshold was crossed
	// and a cooldown was activated.
	ErrTooManyAttempts = errors.New("vault: too many failed unlock attempts")

	// ErrCooldownActive indicates unlocking is temporarily blocked after
	// repeated failures.
	ErrCooldownActive = errors.New("vault: cooldown period active")
)
