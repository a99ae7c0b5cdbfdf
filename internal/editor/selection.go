package editor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
)

// ErrReadOnlyProperty is returned when an edit targets a derived field.
var ErrReadOnlyProperty = errors.New("property is read-only")

// Selection is the side-panel view-model of the selected node. Detail stays
// nil until the component schema resolves, and for good if the lookup fails.
type Selection struct {
	Node   diagram.Node      `json:"node"`
	Detail *component.Detail `json:"detail,omitempty"`
}

// HasSchema reports whether the selection carries an editable schema.
func (s *Selection) HasSchema() bool {
	return s != nil && s.Detail != nil
}

func (s *Selection) clone() *Selection {
	c := &Selection{Node: s.Node.Clone()}
	if s.Detail != nil {
		d := *s.Detail
		d.Properties = append([]component.Property(nil), s.Detail.Properties...)
		c.Detail = &d
	}
	return c
}

// Select makes id the selected node and resolves its property schema.
//
// The node is selected immediately without a schema; the schema is merged
// in once the catalog answers, unless another Select, Deselect or Replace
// happened in the meantime, in which case the late answer is dropped and
// ErrSelectionSuperseded returned. A failed lookup keeps the bare node
// selected and is not an error.
func (c *Canvas) Select(ctx context.Context, id string) (*Selection, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	i := c.indexOf(id)
	if i < 0 {
		c.selection = nil
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c.selection = &Selection{Node: c.nodes[i].Clone()}
	c.mu.Unlock()

	detail, err := c.catalog.Get(ctx, c.provider, diagram.ComponentType(id))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.selection == nil {
		c.log.Debug("dropping stale component details", zap.String("node", id))
		return nil, ErrSelectionSuperseded
	}
	if err != nil {
		c.log.Warn("error fetching component details", zap.String("node", id), zap.Error(err))
		return c.selection.clone(), nil
	}
	c.selection.Detail = detail
	return c.selection.clone(), nil
}

// Deselect clears the selection.
func (c *Canvas) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.selection = nil
}

// Selected returns a copy of the current selection.
func (c *Canvas) Selected() (*Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil, false
	}
	return c.selection.clone(), true
}

// SetProperty writes value under name into the selected node, updating the
// inspector copy and the graph node in the same critical section.
func (c *Canvas) SetProperty(name string, value any) (*Selection, error) {
	if name == diagram.FieldIconPath {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyProperty, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selection == nil {
		return nil, ErrNoSelection
	}
	i := c.indexOf(c.selection.Node.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, c.selection.Node.ID)
	}

	node := &c.nodes[i]
	if node.Data == nil {
		node.Data = make(map[string]any)
	}
	if c.selection.Node.Data == nil {
		c.selection.Node.Data = make(map[string]any)
	}
	// Normalize returns fresh maps and slices, so the two copies never alias.
	node.Data[name] = diagram.Normalize(value)
	c.selection.Node.Data[name] = diagram.Normalize(value)
	return c.selection.clone(), nil
}
