// Package persistence saves and restores canvas diagrams.
//
// Two backends share one contract: Directory writes a diagram.json plus one
// YAML property document per node into a named directory, Remote submits
// the whole diagram to a named-archive service. Import re-validates loaded
// nodes against the current component schemas before anything reaches a
// canvas, and Adapter turns the outcome into a user notification.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/json-to-terraform/atc/internal/diagram"
)

var (
	// ErrNotFound is returned when no saved diagram has the requested name.
	ErrNotFound = errors.New("diagram not found")
	// ErrInvalidName is returned for destination names a backend cannot hold.
	ErrInvalidName = errors.New("invalid diagram name")
)

// Backend is a persistence strategy.
type Backend interface {
	Save(ctx context.Context, name string, d diagram.Diagram) error
	Load(ctx context.Context, name string) (*Bundle, error)
	List(ctx context.Context) ([]string, error)
}

// Bundle is a loaded, not yet validated diagram.
type Bundle struct {
	Diagram diagram.Diagram
	// Properties holds the per-node property documents keyed by node id.
	// It is nil for backends that keep properties inside the node data.
	Properties map[string]map[string]any
}

// Merged returns the diagram with each node's data taken from its property
// document where one exists, keeping the display-only icon path. Nothing
// is checked against component schemas; use Import for that.
func (b *Bundle) Merged() diagram.Diagram {
	d := b.Diagram.Clone()
	for i := range d.Nodes {
		n := &d.Nodes[i]
		doc, ok := b.Properties[n.ID]
		if !ok {
			continue
		}
		data := diagram.NormalizeMap(doc)
		if data == nil {
			data = map[string]any{}
		}
		if icon, ok := n.Data[diagram.FieldIconPath]; ok {
			data[diagram.FieldIconPath] = icon
		}
		n.Data = data
	}
	return d
}

// MissingDocumentError reports a node without its property document.
type MissingDocumentError struct {
	NodeID string
	Label  string
}

func (e *MissingDocumentError) Error() string {
	return fmt.Sprintf("property file %s.yaml not found for node %s", e.NodeID, e.Label)
}

// MissingSchemaError reports a component type whose schema could not be fetched.
type MissingSchemaError struct {
	ComponentType string
	Err           error
}

func (e *MissingSchemaError) Error() string {
	return fmt.Sprintf("schema for component type %q unavailable: %v", e.ComponentType, e.Err)
}

func (e *MissingSchemaError) Unwrap() error { return e.Err }

// UnknownPropertyError reports a persisted property the current schema
// does not declare.
type UnknownPropertyError struct {
	Property string
	NodeID   string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("invalid property %q for node %q", e.Property, e.NodeID)
}
