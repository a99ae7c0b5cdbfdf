package component

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultIconBase is the URL prefix icon paths are published under.
const DefaultIconBase = "/api/atc"

// ErrInvalidName is returned for provider or icon names that are not a
// single path element.
var ErrInvalidName = errors.New("invalid name")

// Store serves the catalog from a directory tree:
//
//	<root>/<provider>/components/<name>.json
//	<root>/<provider>/icons/<icon>
//
// Provider indexes are loaded lazily and dropped when Watch sees a change.
type Store struct {
	root     string
	iconBase string
	log      *zap.Logger

	mu      sync.RWMutex
	indexes map[string]*providerIndex
}

type providerIndex struct {
	defs    []Definition
	keys    []string           // file base names, sorted
	details map[string]*Detail // keyed by file base name
}

// NewStore returns a catalog store rooted at dir.
func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		root:     dir,
		iconBase: DefaultIconBase,
		log:      log.Named("catalog"),
		indexes:  make(map[string]*providerIndex),
	}
}

// SetIconBase overrides the URL prefix used to build icon_path.
func (s *Store) SetIconBase(base string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iconBase = strings.TrimRight(base, "/")
	s.indexes = make(map[string]*providerIndex)
}

// List implements Catalog.
func (s *Store) List(_ context.Context, provider string) ([]Definition, error) {
	idx, err := s.index(provider)
	if err != nil {
		return nil, err
	}
	out := make([]Definition, len(idx.defs))
	copy(out, idx.defs)
	return out, nil
}

// Get implements Catalog. A "<provider>_" prefix on the type is stripped to
// find the document, so "gcp_cloud_storage" resolves to cloud_storage.json.
func (s *Store) Get(_ context.Context, provider, componentType string) (*Detail, error) {
	idx, err := s.index(provider)
	if err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(componentType, provider+"_")
	d, ok := idx.details[key]
	if !ok {
		for _, k := range idx.keys {
			if cand := idx.details[k]; cand.Type == componentType {
				d, ok = cand, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, provider, componentType)
	}
	return cloneDetail(d), nil
}

// IconFile resolves the on-disk path of a provider icon.
func (s *Store) IconFile(provider, icon string) (string, error) {
	if !singleElement(provider) || !singleElement(icon) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.root, provider, "icons", icon)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: icon %s", ErrNotFound, icon)
		}
		return "", err
	}
	return path, nil
}

// Providers lists the provider directories present under the root.
func (s *Store) Providers() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read catalog root: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Invalidate drops the cached index of a provider.
func (s *Store) Invalidate(provider string) {
	s.mu.Lock()
	delete(s.indexes, provider)
	s.mu.Unlock()
}

func (s *Store) index(provider string) (*providerIndex, error) {
	if !singleElement(provider) {
		return nil, fmt.Errorf("%w: provider %q", ErrInvalidName, provider)
	}
	s.mu.RLock()
	idx, ok := s.indexes[provider]
	base := s.iconBase
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	idx, err := s.load(provider, base)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.indexes[provider] = idx
	s.mu.Unlock()
	return idx, nil
}

func (s *Store) load(provider, iconBase string) (*providerIndex, error) {
	dir := filepath.Join(s.root, provider, "components")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: provider %s", ErrNotFound, provider)
		}
		return nil, fmt.Errorf("read components: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	idx := &providerIndex{details: make(map[string]*Detail, len(names))}
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var d Detail
		if err := json.Unmarshal(raw, &d); err != nil {
			s.log.Warn("skipping unreadable component document", zap.String("file", name), zap.Error(err))
			continue
		}
		if err := d.Validate(); err != nil {
			s.log.Warn("skipping component document", zap.String("file", name), zap.Error(err))
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		idx.details[key] = &d
		idx.keys = append(idx.keys, key)
		idx.defs = append(idx.defs, Definition{
			Name:     d.Name,
			Type:     d.Type,
			IconPath: fmt.Sprintf("%s/%s/icons/%s", iconBase, provider, d.Icon),
		})
	}
	s.log.Debug("loaded catalog", zap.String("provider", provider), zap.Int("components", len(idx.defs)))
	return idx, nil
}

// Watch invalidates provider indexes whenever a component document changes.
// Provider and components directories created after the call are picked up
// as they appear. It returns once the watcher is registered; the watch loop
// ends with ctx.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return err
	}
	providers, err := s.Providers()
	if err != nil {
		watcher.Close()
		return err
	}
	for _, p := range providers {
		s.watchProvider(watcher, p)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleEvent(watcher, ev)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("catalog watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// watchProvider adds <root>/<provider> and, when present, its components
// directory. Missing directories are skipped silently.
func (s *Store) watchProvider(watcher *fsnotify.Watcher, provider string) {
	for _, dir := range []string{
		filepath.Join(s.root, provider),
		filepath.Join(s.root, provider, "components"),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			s.log.Warn("cannot watch components", zap.String("dir", dir), zap.Error(err))
		}
	}
}

func (s *Store) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	provider := parts[0]

	switch {
	case len(parts) == 1:
		if ev.Has(fsnotify.Create) {
			s.watchProvider(watcher, provider)
		}
	case len(parts) == 2 && parts[1] == "components":
		if ev.Has(fsnotify.Create) {
			s.watchProvider(watcher, provider)
		}
	case len(parts) == 3 && parts[1] == "components":
	default:
		return
	}

	// Invalidate after any new watch is in place so documents written
	// before it was registered are still seen on the next read.
	s.Invalidate(provider)
	s.log.Info("component documents changed",
		zap.String("provider", provider), zap.String("file", filepath.Base(ev.Name)), zap.String("op", ev.Op.String()))
}

func singleElement(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

func cloneDetail(d *Detail) *Detail {
	c := *d
	c.Properties = make([]Property, len(d.Properties))
	for i, p := range d.Properties {
		p.Options = append([]string(nil), p.Options...)
		c.Properties[i] = p
	}
	return &c
}
