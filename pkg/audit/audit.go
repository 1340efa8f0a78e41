// Package audit keeps a tamper-evident log of vault operations in a local
// SQLite database. Each event carries an HMAC chained to the previous
// event's MAC, so deleting or editing a row breaks verification of
// everything after it.
//
// Profile names never appear in plaintext; they are stored as HMAC digests
// keyed from the vault key, so the log leaks no more than the fact that an
// operation happened. Logging is best-effort by contract: callers must not
// fail vault operations on audit errors.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"

	_ "modernc.org/sqlite"
)

// Operation names recorded in the log.
const (
	OpVaultCreate       = "vault.create"
	OpVaultUnlock       = "vault.unlock"
	OpVaultUnlockFailed = "vault.unlock_failed"
	OpVaultLock         = "vault.lock"
	OpVaultRekey        = "vault.rekey"
	OpProfileAdd        = "profile.add"
	OpProfileUpdate     = "profile.update"
	OpProfileRemove     = "profile.remove"
	OpProfileRename     = "profile.rename"
	OpProfileList       = "profile.list"
	OpProfileReveal     = "profile.reveal"
)

// Event results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// ErrKeyNotSet indicates a log call before SetKey. The logger cannot MAC
// events without a key, so the event is refused rather than written
// unprotected.
var ErrKeyNotSet = errors.New("audit: logger key not set")

// hkdfInfo domain-separates the audit key from the vault key.
const hkdfInfo = "sshvault/audit/v1"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        TEXT NOT NULL,
	op        TEXT NOT NULL,
	name_hmac TEXT NOT NULL,
	result    TEXT NOT NULL,
	detail    TEXT NOT NULL,
	prev      TEXT NOT NULL,
	mac       TEXT NOT NULL
);
`

// Logger appends HMAC-chained events to a SQLite database. Safe for
// concurrent use.
type Logger struct {
	mu      sync.Mutex
	db      *sql.DB
	hmacKey []byte
	lastMAC string
}

// Open creates or opens the audit database at path.
func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to open database: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: failed to initialize schema: %w", err)
	}

	l := &Logger{db: db}
	if err := l.loadTail(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// SetKey derives the HMAC key from the vault key. Must be called after
// every unlock or rekey before events can be written.
func (l *Logger) SetKey(vaultKey []byte) error {
	r := hkdf.New(sha256.New, vaultKey, nil, []byte(hkdfInfo))
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, key); err != nil {
		return fmt.Errorf("audit: failed to derive log key: %w", err)
	}
	l.mu.Lock()
	l.hmacKey = key
	l.mu.Unlock()
	return nil
}

// LogSuccess records a successful operation. name may be empty for
// vault-level events.
func (l *Logger) LogSuccess(op, name string) error {
	return l.log(op, name, ResultSuccess, "")
}

// LogError records a failed operation with a short detail string.
func (l *Logger) LogError(op, name, detail string) error {
	return l.log(op, name, ResultError, detail)
}

func (l *Logger) log(op, name, result, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hmacKey == nil {
		return ErrKeyNotSet
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	nameHMAC := l.hmacHex([]byte(name))
	mac := l.eventMAC(ts, op, nameHMAC, result, detail, l.lastMAC)

	_, err := l.db.Exec(
		`INSERT INTO events (ts, op, name_hmac, result, detail, prev, mac) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts, op, nameHMAC, result, detail, l.lastMAC, mac,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to write event: %w", err)
	}
	l.lastMAC = mac
	return nil
}

// VerifyResult reports the outcome of a chain walk.
type VerifyResult struct {
	Events   int   // events checked
	BrokenAt int64 // seq of the first bad event, 0 if intact
}

// Intact reports whether the whole chain verified.
func (r *VerifyResult) Intact() bool {
	return r.BrokenAt == 0
}

// Verify walks the event chain from the start and recomputes every MAC.
// It stops at the first event that fails, recording its sequence number.
func (l *Logger) Verify() (*VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hmacKey == nil {
		return nil, ErrKeyNotSet
	}

	rows, err := l.db.Query(
		`SELECT seq, ts, op, name_hmac, result, detail, prev, mac FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	defer rows.Close()

	res := &VerifyResult{}
	prev := ""
	for rows.Next() {
		var seq int64
		var ts, op, nameHMAC, result, detail, storedPrev, storedMAC string
		if err := rows.Scan(&seq, &ts, &op, &nameHMAC, &result, &detail, &storedPrev, &storedMAC); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		want := l.eventMAC(ts, op, nameHMAC, result, detail, storedPrev)
		if storedPrev != prev || !hmac.Equal([]byte(want), []byte(storedMAC)) {
			res.BrokenAt = seq
			return res, rows.Err()
		}
		prev = storedMAC
		res.Events++
	}
	return res, rows.Err()
}

// Close releases the database handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

// loadTail primes lastMAC from the newest event so new sessions extend the
// existing chain.
func (l *Logger) loadTail() error {
	row := l.db.QueryRow(`SELECT mac FROM events ORDER BY seq DESC LIMIT 1`)
	var mac string
	switch err := row.Scan(&mac); {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("audit: failed to read chain tail: %w", err)
	}
	l.lastMAC = mac
	return nil
}

func (l *Logger) hmacHex(data []byte) string {
	h := hmac.New(sha256.New, l.hmacKey)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (l *Logger) eventMAC(ts, op, nameHMAC, result, detail, prev string) string {
	h := hmac.New(sha256.New, l.hmacKey)
	for _, field := range []string{ts, op, nameHMAC, result, detail, prev} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
