// Package archive stores named diagrams for the remote archive service.
//
// Archives live at <dir>/<provider>/<name>.json; names are restricted to
// letters and digits so they can never escape the directory.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/json-to-terraform/atc/internal/diagram"
)

var (
	// ErrInvalidName is returned for names that are not alphanumeric.
	ErrInvalidName = errors.New("architecture name must be alphanumeric")
	// ErrNotFound is returned when no archive has the requested name.
	ErrNotFound = errors.New("architecture not found")
)

const ext = ".json"

// Store is a filesystem-backed named archive store.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// ValidName reports whether name is a non-empty run of letters and digits.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Save writes d under name, replacing any previous archive of that name.
func (s *Store) Save(provider, name string, d diagram.Diagram) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	dir, err := s.providerDir(provider)
	if err != nil {
		return err
	}

	d = d.Clone()
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode architecture: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+ext), b, 0o644); err != nil {
		return fmt.Errorf("failed to save architecture: %w", err)
	}
	return nil
}

// List returns the saved archive names in lexical order.
func (s *Store) List(provider string) ([]string, error) {
	dir, err := s.providerDir(provider)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list architectures: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the archive saved under name.
func (s *Store) Load(provider, name string) (*diagram.Diagram, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	dir, err := s.providerDir(provider)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	b, err := os.ReadFile(filepath.Join(dir, name+ext))
	s.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var d diagram.Diagram
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode architecture %s: %w", name, err)
	}
	d = d.Clone()
	return &d, nil
}

func (s *Store) providerDir(provider string) (string, error) {
	if provider == "" || provider != filepath.Base(provider) || strings.HasPrefix(provider, ".") {
		return "", fmt.Errorf("%w: provider %q", ErrInvalidName, provider)
	}
	return filepath.Join(s.dir, provider), nil
}
