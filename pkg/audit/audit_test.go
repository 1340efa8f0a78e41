package audit

import (
	"errors"
	"path/filepath"
	"testing"
)

func testLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	if err := l.SetKey([]byte("0123456789abcdef0123456789abcdef")); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	return l
}

func TestLogRequiresKey(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if err := l.LogSuccess(OpVaultUnlock, ""); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("LogSuccess() without key error = %v, want ErrKeyNotSet", err)
	}
	if _, err := l.Verify(); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("Verify() without key error = %v, want ErrKeyNotSet", err)
	}
}

func TestChainVerifies(t *testing.T) {
	l := testLogger(t)

	if err := l.LogSuccess(OpVaultCreate, ""); err != nil {
		t.Fatalf("LogSuccess() error = %v", err)
	}
	if err := l.LogSuccess(OpProfileAdd, "web1"); err != nil {
		t.Fatalf("LogSuccess() error = %v", err)
	}
	if err := l.LogError(OpProfileRename, "web1", "name already exists"); err != nil {
		t.Fatalf("LogError() error = %v", err)
	}

	res, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !res.Intact() {
		t.Errorf("Verify() chain broken at seq %d", res.BrokenAt)
	}
	if res.Events != 3 {
		t.Errorf("Verify() events = %d, want 3", res.Events)
	}
}

func TestVerifyDetectsEditedRow(t *testing.T) {
	l := testLogger(t)

	for i := 0; i < 3; i++ {
		if err := l.LogSuccess(OpProfileList, ""); err != nil {
			t.Fatalf("LogSuccess() error = %v", err)
		}
	}

	if _, err := l.db.Exec(`UPDATE events SET op = ? WHERE seq = 2`, OpProfileReveal); err != nil {
		t.Fatalf("tamper update error = %v", err)
	}

	res, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if res.Intact() {
		t.Fatal("Verify() reported intact chain after row edit")
	}
	if res.BrokenAt != 2 {
		t.Errorf("Verify() BrokenAt = %d, want 2", res.BrokenAt)
	}
}

func TestVerifyDetectsDeletedRow(t *testing.T) {
	l := testLogger(t)

	for i := 0; i < 3; i++ {
		if err := l.LogSuccess(OpProfileList, ""); err != nil {
			t.Fatalf("LogSuccess() error = %v", err)
		}
	}

	if _, err := l.db.Exec(`DELETE FROM events WHERE seq = 2`); err != nil {
		t.Fatalf("tamper delete error = %v", err)
	}

	res, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if res.Intact() {
		t.Fatal("Verify() reported intact chain after row deletion")
	}
}

func TestChainExtendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	key := []byte("0123456789abcdef0123456789abcdef")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := l.SetKey(key); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	if err := l.LogSuccess(OpVaultCreate, ""); err != nil {
		t.Fatalf("LogSuccess() error = %v", err)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer l2.Close()
	if err := l2.SetKey(key); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	if err := l2.LogSuccess(OpVaultUnlock, ""); err != nil {
		t.Fatalf("LogSuccess() error = %v", err)
	}

	res, err := l2.Verify()
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !res.Intact() {
		t.Errorf("Verify() chain broken at seq %d after reopen", res.BrokenAt)
	}
	if res.Events != 2 {
		t.Errorf("Verify() events = %d, want 2", res.Events)
	}
}

func TestNamesNotStoredInPlaintext(t *testing.T) {
	l := testLogger(t)

	const name = "prod-db-server"
	if err := l.LogSuccess(OpProfileAdd, name); err != nil {
		t.Fatalf("LogSuccess() error = %v", err)
	}

	var stored string
	if err := l.db.QueryRow(`SELECT name_hmac FROM events LIMIT 1`).Scan(&stored); err != nil {
		t.Fatalf("query error = %v", err)
	}
	if stored == name {
		t.Error("profile name stored in plaintext")
	}
	if want := l.hmacHex([]byte(name)); stored != want {
		t.Errorf("name_hmac = %q, want %q", stored, want)
	}
}
