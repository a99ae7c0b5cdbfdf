package persistence

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
)

// maxSchemaFetches bounds concurrent schema lookups during Import.
const maxSchemaFetches = 8

// Import validates a loaded bundle against the current catalog and returns
// the diagram to install. Every node's type is re-derived from its id and
// its persisted properties are checked against the current schema for that
// type; label is exempt. icon_path is never trusted from the bundle and is
// re-attached from the catalog list, or left blank when the list cannot be
// fetched. Nothing is returned on any other failure.
func Import(ctx context.Context, catalog component.Catalog, provider string, b *Bundle) (diagram.Diagram, error) {
	d := b.Diagram.Clone()

	types := make([]string, 0)
	seen := make(map[string]bool)
	for i := range d.Nodes {
		t := d.Nodes[i].ComponentType()
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}

	var (
		mu      sync.Mutex
		schemas = make(map[string]*component.Detail, len(types))
		defs    []component.Definition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSchemaFetches)
	g.Go(func() error {
		list, err := catalog.List(gctx, provider)
		if err != nil {
			// The palette only feeds icon_path; without it icons are blank.
			return nil
		}
		mu.Lock()
		defs = list
		mu.Unlock()
		return nil
	})
	for _, t := range types {
		g.Go(func() error {
			detail, err := catalog.Get(gctx, provider, t)
			if err != nil {
				return &MissingSchemaError{ComponentType: t, Err: err}
			}
			mu.Lock()
			schemas[t] = detail
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return diagram.Diagram{}, err
	}

	for i := range d.Nodes {
		n := &d.Nodes[i]
		t := n.ComponentType()

		var props map[string]any
		if b.Properties != nil {
			doc, ok := b.Properties[n.ID]
			if !ok {
				return diagram.Diagram{}, &MissingDocumentError{NodeID: n.ID, Label: n.Label()}
			}
			props = diagram.NormalizeMap(doc)
		} else {
			props = n.Properties()
		}
		if props == nil {
			props = map[string]any{}
		}

		if err := checkProperties(schemas[t], n.ID, props); err != nil {
			return diagram.Diagram{}, err
		}

		iconPath := ""
		if def, ok := component.FindDefinition(defs, t); ok {
			iconPath = def.IconPath
		}
		props[diagram.FieldIconPath] = iconPath
		n.Data = props
	}
	return d, nil
}

func checkProperties(schema *component.Detail, nodeID string, props map[string]any) error {
	names := schema.PropertyNames()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == diagram.FieldLabel {
			continue
		}
		if !names[k] {
			return &UnknownPropertyError{Property: k, NodeID: nodeID}
		}
	}
	return nil
}
