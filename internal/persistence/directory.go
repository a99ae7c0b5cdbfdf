package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/json-to-terraform/atc/internal/diagram"
)

// DiagramFile is the graph document inside a saved directory.
const DiagramFile = "diagram.json"

const propertyExt = ".yaml"

// Directory saves each diagram into <Root>/<name>/.
type Directory struct {
	Root string
}

// NewDirectory returns a directory backend rooted at root.
func NewDirectory(root string) *Directory {
	return &Directory{Root: root}
}

// Save writes diagram.json and one <node id>.yaml per node. Cancellation is
// honoured between files; files already written are left in place.
func (b *Directory) Save(ctx context.Context, name string, d diagram.Diagram) error {
	dir, err := b.dir(name)
	if err != nil {
		return err
	}
	for i := range d.Nodes {
		if !singleElement(d.Nodes[i].ID) {
			return fmt.Errorf("%w: node id %q", ErrInvalidName, d.Nodes[i].ID)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	d = d.Clone()
	doc, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", DiagramFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, DiagramFile), doc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", DiagramFile, err)
	}

	for i := range d.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := &d.Nodes[i]
		props, err := yaml.Marshal(n.Properties())
		if err != nil {
			return fmt.Errorf("encode properties of %s: %w", n.ID, err)
		}
		if err := os.WriteFile(filepath.Join(dir, n.ID+propertyExt), props, 0o644); err != nil {
			return fmt.Errorf("write properties of %s: %w", n.ID, err)
		}
	}
	return nil
}

// Load reads diagram.json and every *.yaml document next to it.
func (b *Directory) Load(ctx context.Context, name string) (*Bundle, error) {
	dir, err := b.dir(name)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, DiagramFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrNotFound, DiagramFile, name)
	}
	if err != nil {
		return nil, err
	}
	var d diagram.Diagram
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", DiagramFile, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	props := make(map[string]map[string]any)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), propertyExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := yaml.Unmarshal(content, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		if m == nil {
			m = map[string]any{}
		}
		props[strings.TrimSuffix(e.Name(), propertyExt)] = diagram.NormalizeMap(m)
	}

	return &Bundle{Diagram: d.Clone(), Properties: props}, nil
}

// List returns the names of subdirectories holding a diagram.json.
func (b *Directory) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.Root)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(b.Root, e.Name(), DiagramFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *Directory) dir(name string) (string, error) {
	if !singleElement(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(b.Root, name), nil
}

func singleElement(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
