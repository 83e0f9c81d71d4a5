// Package settings persists runtime configuration overrides across restarts.
// Overrides are applied on top of environment and file configuration the next
// time a run starts; nothing reacts to them mid-run.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is a file-backed key-value override store.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// Open loads the override store at path, creating an empty one if absent.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings store: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse settings store: %w", err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}

	return s, nil
}

// Get returns the override for key, or ok=false if none is set.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set records an override and persists the store.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

// Delete removes one override. Returns true if it existed.
func (s *Store) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	if !ok {
		return false, nil
	}
	delete(s.values, key)
	return true, s.flush()
}

// ResetAll drops every override and returns how many were removed.
func (s *Store) ResetAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.values)
	s.values = make(map[string]string)
	return n, s.flush()
}

// ListAll returns all overrides as a stable key-sorted slice of pairs.
func (s *Store) ListAll() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, s.values[k]})
	}
	return out
}

// Snapshot returns a copy of all overrides for config layering.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) flush() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0644)
}
