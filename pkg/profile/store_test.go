package profile

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testProfile(name string) ServerProfile {
	return ServerProfile{
		Name:     name,
		Host:     "10.0.0.5",
		Port:     22,
		Username: "admin",
		Password: "s3cret",
	}
}

func TestStoreAdd(t *testing.T) {
	s := NewStore()

	id, err := s.Add(testProfile("web1"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if id == "" {
		t.Fatal("Add() returned empty ID")
	}

	got, err := s.Credentials(id)
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if got.Name != "web1" || got.Host != "10.0.0.5" || got.Port != 22 ||
		got.Username != "admin" || got.Password != "s3cret" {
		t.Errorf("stored profile = %+v, fields do not match input", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Add() did not set timestamps")
	}
}

func TestStoreAddDefaultsPort(t *testing.T) {
	s := NewStore()
	p := testProfile("web1")
	p.Port = 0

	id, err := s.Add(p)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	got, _ := s.Find(id)
	if got.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", got.Port, DefaultPort)
	}
}

func TestStoreAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerProfile)
		wantErr error
	}{
		{"empty name", func(p *ServerProfile) { p.Name = "" }, ErrEmptyName},
		{"whitespace name", func(p *ServerProfile) { p.Name = "   " }, ErrEmptyName},
		{"name too long", func(p *ServerProfile) { p.Name = strings.Repeat("x", MaxNameLength+1) }, ErrNameTooLong},
		{"empty host", func(p *ServerProfile) { p.Host = "" }, ErrEmptyHost},
		{"negative port", func(p *ServerProfile) { p.Port = -1 }, ErrInvalidPort},
		{"port too large", func(p *ServerProfile) { p.Port = 65536 }, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			p := testProfile("web1")
			tt.mutate(&p)
			if _, err := s.Add(p); !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
			if s.Len() != 0 {
				t.Error("store modified by failed Add()")
			}
		})
	}
}

func TestStoreDuplicateName(t *testing.T) {
	s := NewStore()
	if _, err := s.Add(testProfile("web1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if _, err := s.Add(testProfile("web1")); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Add() duplicate error = %v, want ErrDuplicateName", err)
	}

	// Names differing only in surrounding whitespace or Unicode form
	// collide after normalization.
	if _, err := s.Add(testProfile("  web1 ")); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Add() whitespace-variant error = %v, want ErrDuplicateName", err)
	}
}

func TestStoreRename(t *testing.T) {
	s := NewStore()
	id1, _ := s.Add(testProfile("web1"))
	id2, _ := s.Add(testProfile("web2"))

	if err := s.Rename(id1, "frontend"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	got, _ := s.Find(id1)
	if got.Name != "frontend" {
		t.Errorf("Name = %q, want %q", got.Name, "frontend")
	}

	// Renaming onto another profile's name must fail and leave the store
	// unchanged.
	if err := s.Rename(id2, "frontend"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Rename() collision error = %v, want ErrDuplicateName", err)
	}
	got, _ = s.Find(id2)
	if got.Name != "web2" {
		t.Errorf("Name after failed rename = %q, want %q", got.Name, "web2")
	}

	// Renaming a profile to its own name is allowed.
	if err := s.Rename(id1, "frontend"); err != nil {
		t.Errorf("Rename() to own name error = %v", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(testProfile("web1"))

	host := "192.168.1.10"
	port := 2222
	pass := "new-pass"
	if err := s.Update(id, Changes{Host: &host, Port: &port, Password: &pass}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.Credentials(id)
	if got.Host != host || got.Port != port || got.Password != pass {
		t.Errorf("updated profile = %+v", got)
	}
	if got.Username != "admin" {
		t.Errorf("Username changed by partial update: %q", got.Username)
	}

	badPort := 0
	if err := s.Update(id, Changes{Port: &badPort}); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("Update() bad port error = %v, want ErrInvalidPort", err)
	}

	if err := s.Update("no-such-id", Changes{Host: &host}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() unknown ID error = %v, want ErrNotFound", err)
	}
}

func TestStoreUpdateKeepsID(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(testProfile("web1"))

	name := "renamed"
	if err := s.Update(id, Changes{Name: &name}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := s.Find(id); err != nil {
		t.Errorf("profile not reachable under original ID after update: %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	id1, _ := s.Add(testProfile("web1"))
	id2, _ := s.Add(testProfile("web2"))

	if err := s.Remove(id1); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Find(id1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() after remove error = %v, want ErrNotFound", err)
	}
	if _, err := s.Find(id2); err != nil {
		t.Errorf("Remove() deleted the wrong profile: %v", err)
	}

	if err := s.Remove(id1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() twice error = %v, want ErrNotFound", err)
	}
}

func TestStoreListOrder(t *testing.T) {
	s := NewStore()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if _, err := s.Add(testProfile(n)); err != nil {
			t.Fatalf("Add(%q) error = %v", n, err)
		}
	}

	list := s.List()
	if len(list) != len(names) {
		t.Fatalf("List() returned %d profiles, want %d", len(list), len(names))
	}
	for i, p := range list {
		if p.Name != names[i] {
			t.Errorf("List()[%d].Name = %q, want %q (insertion order)", i, p.Name, names[i])
		}
	}
}

func TestStoreRedaction(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(testProfile("web1"))

	for _, p := range s.List() {
		if p.Password != "" {
			t.Error("List() exposed a password")
		}
	}

	got, _ := s.Find(id)
	if got.Password != "" {
		t.Error("Find() exposed a password")
	}

	got, _ = s.FindByName("web1")
	if got.Password != "" {
		t.Error("FindByName() exposed a password")
	}

	got, err := s.Credentials(id)
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if got.Password != "s3cret" {
		t.Errorf("Credentials().Password = %q, want %q", got.Password, "s3cret")
	}
}

func TestStoreServices(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(testProfile("web1"))

	if err := s.SetServices(id, []string{" nginx ", "postgres", "nginx", "", "redis"}); err != nil {
		t.Fatalf("SetServices() error = %v", err)
	}

	got, _ := s.Find(id)
	want := []string{"nginx", "postgres", "redis"}
	if !reflect.DeepEqual(got.Services, want) {
		t.Errorf("Services = %v, want %v (trimmed, deduplicated, order kept)", got.Services, want)
	}

	// Clearing services.
	if err := s.SetServices(id, nil); err != nil {
		t.Fatalf("SetServices(nil) error = %v", err)
	}
	got, _ = s.Find(id)
	if got.Services != nil {
		t.Errorf("Services after clear = %v, want nil", got.Services)
	}
}

func TestStoreSerializeRoundTrip(t *testing.T) {
	s := NewStore()
	p1 := testProfile("web1")
	p1.Services = []string{"nginx", "redis"}
	id1, _ := s.Add(p1)
	p2 := testProfile("db1")
	p2.Host = "10.0.0.6"
	p2.Port = 2022
	id2, _ := s.Add(p2)

	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	if restored.Len() != s.Len() {
		t.Fatalf("restored Len() = %d, want %d", restored.Len(), s.Len())
	}
	for _, id := range []string{id1, id2} {
		want, _ := s.Credentials(id)
		got, err := restored.Credentials(id)
		if err != nil {
			t.Fatalf("restored Credentials(%q) error = %v", id, err)
		}
		if got.Name != want.Name || got.Host != want.Host || got.Port != want.Port ||
			got.Username != want.Username || got.Password != want.Password ||
			!reflect.DeepEqual(got.Services, want.Services) {
			t.Errorf("restored profile %q = %+v, want %+v", id, got, want)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Errorf("restored timestamps differ for %q", id)
		}
	}

	// Serialization is canonical: the same state encodes identically.
	data2, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if string(data) != string(data2) {
		t.Error("Serialize() is not deterministic for identical state")
	}
}

func TestStoreSerializeEmpty(t *testing.T) {
	data, err := NewStore().Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if restored.Len() != 0 {
		t.Errorf("restored Len() = %d, want 0", restored.Len())
	}
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "not json at all"},
		{"truncated json", `{"version":1,"profiles":[{"id":"a"`},
		{"wrong version", `{"version":99,"profiles":[]}`},
		{"missing version", `{"profiles":[]}`},
		{"profile without id", `{"version":1,"profiles":[{"name":"a","host":"h","port":22}]}`},
		{"invalid port", `{"version":1,"profiles":[{"id":"a","name":"a","host":"h","port":70000}]}`},
		{"duplicate names", `{"version":1,"profiles":[{"id":"a","name":"x","host":"h","port":22},{"id":"b","name":"x","host":"h","port":22}]}`},
		{"duplicate ids", `{"version":1,"profiles":[{"id":"a","name":"x","host":"h","port":22},{"id":"a","name":"y","host":"h","port":22}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Deserialize([]byte(tt.data)); !errors.Is(err, ErrFormat) {
				t.Errorf("Deserialize() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestCloneIsolation(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(testProfile("web1"))
	_ = s.SetServices(id, []string{"nginx"})

	c := s.Clone()
	host := "changed"
	if err := c.Update(id, Changes{Host: &host}); err != nil {
		t.Fatalf("Update() on clone error = %v", err)
	}
	if err := c.SetServices(id, []string{"other"}); err != nil {
		t.Fatalf("SetServices() on clone error = %v", err)
	}

	orig, _ := s.Find(id)
	if orig.Host != "10.0.0.5" {
		t.Errorf("original Host = %q, clone mutation leaked", orig.Host)
	}
	if !reflect.DeepEqual(orig.Services, []string{"nginx"}) {
		t.Errorf("original Services = %v, clone mutation leaked", orig.Services)
	}
}
