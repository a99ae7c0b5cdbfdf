package diagram

import (
	"fmt"
	"strings"
	"time"
)

// NodeTypeCustom is the canvas renderer every component node uses.
const NodeTypeCustom = "custom"

// Well-known keys inside Node.Data.
const (
	FieldLabel    = "label"
	FieldIconPath = "icon_path"
)

// Diagram is the complete serializable graph, the unit of persistence.
type Diagram struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a placed component on the canvas.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Position holds x,y canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a directed connection between two node handles.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// NewNodeID builds "<componentType>-<unix millis>".
func NewNodeID(componentType string, at time.Time) string {
	return fmt.Sprintf("%s-%d", componentType, at.UnixMilli())
}

// ComponentType recovers the component type encoded in a node id
// (everything before the first '-').
func ComponentType(nodeID string) string {
	t, _, _ := strings.Cut(nodeID, "-")
	return t
}

// ComponentType returns the component type encoded in the node id.
func (n *Node) ComponentType() string {
	return ComponentType(n.ID)
}

// Label returns data.label, or "" when unset.
func (n *Node) Label() string {
	return GetStr(n.Data, FieldLabel)
}

// Properties returns a copy of the node data without display-only fields.
func (n *Node) Properties() map[string]any {
	out := make(map[string]any, len(n.Data))
	for k, v := range n.Data {
		if k == FieldIconPath {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	if n.Data != nil {
		c.Data = cloneMap(n.Data)
	}
	return c
}

// Clone returns a deep copy of the diagram. Nil slices come back empty.
func (d *Diagram) Clone() Diagram {
	out := Diagram{
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
	}
	for i := range d.Nodes {
		out.Nodes[i] = d.Nodes[i].Clone()
	}
	copy(out.Edges, d.Edges)
	return out
}
