// Package session holds the application-wide state (auth token, user,
// language, theme) and the stores it persists to.
package session

import (
	"errors"
	"sync"
)

// Keys used in the store
const (
	KeyToken    = "auth_token"
	KeyUser     = "user_data"
	KeyLanguage = "language"
	KeyTheme    = "theme"
)

// ErrUnavailable marks a store that cannot be read or written
var ErrUnavailable = errors.New("storage unavailable")

// Store is a small string key/value store, the analogue of browser local storage
type Store interface {
	// Get returns the value and whether it was present
	Get(key string) (string, bool, error)

	// Set stores the value, replacing any previous one
	Set(key, value string) error

	// Delete removes the key; deleting a missing key is not an error
	Delete(key string) error
}

// MemoryStore keeps values for the lifetime of the process
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get retrieves a value
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores a value
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes a value
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
