// Package editor holds the live state of an architecture diagram while it is
// being edited: the canvas graph, the component palette, the current node
// selection and the property inspector built on top of it.
//
// All mutation goes through a Canvas, which serialises access with a single
// mutex. Network calls (palette and schema lookups) happen outside the lock,
// so a slow catalog never blocks other edits.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
)

var (
	// ErrNodeNotFound is returned when an operation names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoSelection is returned by SetProperty when no node is selected.
	ErrNoSelection = errors.New("no node selected")
	// ErrSelectionSuperseded is returned by Select when another selection
	// was made while its schema was being fetched.
	ErrSelectionSuperseded = errors.New("selection superseded")
)

// Connection is a user-drawn link between two node handles.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Canvas is the canvas state manager for one editing session.
type Canvas struct {
	provider string
	catalog  component.Catalog
	log      *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	components []component.Definition
	nodes      []diagram.Node
	edges      []diagram.Edge
	selection  *Selection
	generation uint64
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithClock replaces the time source used for node ids.
func WithClock(now func() time.Time) Option {
	return func(c *Canvas) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Canvas) { c.log = log }
}

// NewCanvas returns an empty canvas for a cloud provider.
func NewCanvas(catalog component.Catalog, provider string, opts ...Option) *Canvas {
	c := &Canvas{
		provider: provider,
		catalog:  catalog,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("canvas").With(zap.String("provider", provider))
	return c
}

// Provider returns the cloud provider the canvas edits.
func (c *Canvas) Provider() string { return c.provider }

// Catalog returns the component catalog the canvas resolves types against.
func (c *Canvas) Catalog() component.Catalog { return c.catalog }

// LoadCatalog fetches the component palette. A failed fetch leaves the
// palette empty; dropping is then a no-op but the rest of the canvas works.
func (c *Canvas) LoadCatalog(ctx context.Context) error {
	defs, err := c.catalog.List(ctx, c.provider)
	if err != nil {
		c.log.Warn("error fetching components", zap.Error(err))
		return fmt.Errorf("fetch components: %w", err)
	}
	c.mu.Lock()
	c.components = defs
	c.mu.Unlock()
	return nil
}

// Components returns the loaded palette.
func (c *Canvas) Components() []component.Definition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]component.Definition, len(c.components))
	copy(out, c.components)
	return out
}

// Drop places a new node for the dragged component at pos. It reports false
// and adds nothing when the palette has no component of that type.
func (c *Canvas) Drop(componentType, componentName string, pos diagram.Position) (diagram.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	def, ok := component.FindDefinition(c.components, componentType)
	if !ok {
		c.log.Debug("drop ignored, component not in palette", zap.String("type", componentType))
		return diagram.Node{}, false
	}

	at := c.now()
	id := diagram.NewNodeID(componentType, at)
	for c.indexOf(id) >= 0 {
		at = at.Add(time.Millisecond)
		id = diagram.NewNodeID(componentType, at)
	}

	n := diagram.Node{
		ID:       id,
		Type:     diagram.NodeTypeCustom,
		Position: pos,
		Data: map[string]any{
			diagram.FieldLabel:    componentName,
			diagram.FieldIconPath: def.IconPath,
		},
	}
	c.nodes = append(c.nodes, n)
	return n.Clone(), true
}

// Connect appends an edge. Duplicate, self and cyclic edges are accepted.
func (c *Canvas) Connect(conn Connection) diagram.Edge {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := fmt.Sprintf("reactflow__edge-%s%s-%s%s", conn.Source, conn.SourceHandle, conn.Target, conn.TargetHandle)
	id := base
	for n := 2; c.hasEdge(id); n++ {
		id = fmt.Sprintf("%s#%d", base, n)
	}

	e := diagram.Edge{
		ID:           id,
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	c.edges = append(c.edges, e)
	return e
}

// MoveNode updates a node position after a drag on the canvas.
func (c *Canvas) MoveNode(id string, pos diagram.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c.nodes[i].Position = pos
	if c.selection != nil && c.selection.Node.ID == id {
		c.selection.Node.Position = pos
	}
	return nil
}

// Diagram returns a deep copy of the current graph.
func (c *Canvas) Diagram() diagram.Diagram {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := diagram.Diagram{Nodes: c.nodes, Edges: c.edges}
	return d.Clone()
}

// Replace swaps the whole graph in one step and clears the selection.
func (c *Canvas) Replace(d diagram.Diagram) {
	next := d.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = next.Nodes
	c.edges = next.Edges
	c.selection = nil
	c.generation++
}

func (c *Canvas) indexOf(id string) int {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Canvas) hasEdge(id string) bool {
	for i := range c.edges {
		if c.edges[i].ID == id {
			return true
		}
	}
	return false
}
