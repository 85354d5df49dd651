package client

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingStorage struct{ saves int }

func (s *failingStorage) Load() (string, error) { return "", errors.New("disk gone") }
func (s *failingStorage) Save(string) error {
	s.saves++
	return errors.New("read-only")
}

func TestIdentityManagerPersistsAcrossInstances(t *testing.T) {
	storage := &FileStorage{Path: filepath.Join(t.TempDir(), "nested", "session_id")}

	first := NewIdentityManager(storage).GetOrCreateSessionID()
	if !strings.HasPrefix(first, "session_") {
		t.Fatalf("id = %q, want session_ prefix", first)
	}

	info, err := os.Stat(storage.Path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	second := NewIdentityManager(storage).GetOrCreateSessionID()
	if second != first {
		t.Errorf("restarted manager id = %q, want %q", second, first)
	}
}

func TestIdentityManagerStableWithinInstance(t *testing.T) {
	m := NewIdentityManager(&MemoryStorage{})
	a := m.GetOrCreateSessionID()
	b := m.GetOrCreateSessionID()
	if a == "" || a != b {
		t.Errorf("ids = %q, %q; want same non-empty id", a, b)
	}
}

func TestIdentityManagerStorageFailure(t *testing.T) {
	storage := &failingStorage{}
	m := NewIdentityManager(storage)

	id := m.GetOrCreateSessionID()
	if id == "" {
		t.Fatal("expected an id even when storage fails")
	}
	if again := m.GetOrCreateSessionID(); again != id {
		t.Errorf("second call = %q, want %q", again, id)
	}
	if storage.saves != 1 {
		t.Errorf("saves = %d, want 1", storage.saves)
	}
}

func TestFileStorageMissingFile(t *testing.T) {
	s := &FileStorage{Path: filepath.Join(t.TempDir(), "absent")}
	id, err := s.Load()
	if err != nil || id != "" {
		t.Errorf("Load() = %q, %v; want empty, nil", id, err)
	}
}
