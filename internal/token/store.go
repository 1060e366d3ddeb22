// Package token holds the access/refresh token pair used for API calls.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Pair is the credential pair returned by the auth endpoints. Both tokens are
// opaque to the client; validity is determined by server responses, never by
// decoding them locally.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store persists the current token pair in a JSON file. A Store with an empty
// path keeps the pair in memory only, which tests use.
//
// The store is shared mutable state read by every outbound request; all access
// goes through the mutex.
type Store struct {
	mu   sync.Mutex
	path string
	pair Pair
}

// NewStore creates a store backed by the given file, loading any previously
// persisted pair. A missing file is not an error; it means no session.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &s.pair); err != nil {
		// A corrupt token file is treated as no session rather than a
		// hard failure; the next login rewrites it.
		s.pair = Pair{}
	}
	return s, nil
}

// NewMemoryStore creates a store that never touches the filesystem.
func NewMemoryStore() *Store {
	return &Store{}
}

// HasSession reports whether an access token is present. No expiry is checked
// client-side.
func (s *Store) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair.AccessToken != ""
}

// Pair returns a copy of the current token pair.
func (s *Store) Pair() Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// Set replaces the token pair and persists it.
func (s *Store) Set(p Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = p
	return s.persist()
}

// Clear forgets the token pair and removes the persisted file. Used on logout
// and on unrecoverable refresh failure.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = Pair{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(s.pair, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
