// Package client is the Go SDK for sending page views and reading the
// analytics dashboard API.
package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/utils"
)

// Storage persists the session token across process restarts.
type Storage interface {
	Load() (string, error)
	Save(id string) error
}

// IdentityManager hands out one stable session token per client.
type IdentityManager struct {
	storage Storage
	now     func() time.Time

	mu sync.Mutex
	id string
}

func NewIdentityManager(storage Storage) *IdentityManager {
	if storage == nil {
		storage = &MemoryStorage{}
	}
	return &IdentityManager{storage: storage, now: time.Now}
}

// GetOrCreateSessionID returns the persisted token, generating and saving
// one on first use. A failed save is logged and the generated token is still
// used for the lifetime of the manager.
func (m *IdentityManager) GetOrCreateSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id != "" {
		return m.id
	}

	stored, err := m.storage.Load()
	if err != nil {
		logging.Warn().Err(err).Msg("failed to load session id, generating a new one")
	}
	if stored = strings.TrimSpace(stored); stored != "" {
		m.id = stored
		return m.id
	}

	id, err := utils.GenerateSessionID(m.now())
	if err != nil {
		// crypto/rand failing leaves only the timestamp to tell clients apart.
		id = fmt.Sprintf("session_%d_fallback", m.now().UnixNano())
		logging.Error().Err(err).Msg("failed to generate random session id")
	}
	if err := m.storage.Save(id); err != nil {
		logging.Warn().Err(err).Msg("failed to persist session id")
	}
	m.id = id
	return m.id
}

type MemoryStorage struct {
	mu sync.Mutex
	id string
}

func (s *MemoryStorage) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *MemoryStorage) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

// FileStorage keeps the token in a single file.
type FileStorage struct {
	Path string
}

// DefaultFileStorage stores the token under the user's config directory.
func DefaultFileStorage() (*FileStorage, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config dir: %w", err)
	}
	return &FileStorage{Path: filepath.Join(dir, "explorer-analytics", "session_id")}, nil
}

func (s *FileStorage) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStorage) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
