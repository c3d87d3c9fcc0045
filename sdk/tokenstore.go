package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keys of the persisted token entries.
const (
	TokenKeyAuth    = "auth_token"
	TokenKeyRefresh = "refresh_token"
)

// Tokens is the persisted session material.
type Tokens struct {
	AuthToken    string `json:"auth_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Empty reports whether no token is held.
func (t Tokens) Empty() bool {
	return t.AuthToken == "" && t.RefreshToken == ""
}

// TokenStore persists the auth and refresh tokens between runs.
//
// The client calls Purge when a service answers 401. Implementations must be
// safe for concurrent use.
type TokenStore interface {
	// Load returns the stored tokens. Missing entries are empty, not an error.
	Load(ctx context.Context) (Tokens, error)
	// Save replaces the stored tokens.
	Save(ctx context.Context, t Tokens) error
	// Purge removes both entries. Purging an empty store is not an error.
	Purge(ctx context.Context) error
}

// MemoryTokenStore keeps tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored tokens.
func (s *MemoryTokenStore) Load(ctx context.Context) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

// Save replaces the stored tokens.
func (s *MemoryTokenStore) Save(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
	return nil
}

// Purge clears the stored tokens.
func (s *MemoryTokenStore) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	return nil
}

// FileTokenStore keeps tokens in a JSON file readable only by its owner.
//
// Example:
//
//	store := sdk.NewFileTokenStore(filepath.Join(home, ".eislager", "session.json"))
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore creates a store backed by the file at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file path.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the file. A missing file yields empty tokens.
func (s *FileTokenStore) Load(ctx context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("read token file: %w", err)
	}
	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("decode token file: %w", err)
	}
	return t, nil
}

// Save writes the file atomically with mode 0600.
func (s *FileTokenStore) Save(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// Purge removes the file.
func (s *FileTokenStore) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
