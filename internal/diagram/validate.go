package diagram

import (
	"fmt"
)

// ValidationError represents a single validation failure (schema/structure level).
type ValidationError struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"` // error
	NodeID     string `json:"node_id,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Validate checks the structure code generation relies on: unique node ids
// carrying a component type, and edges that reference existing nodes.
// The canvas itself accepts any multigraph; this is not applied on edit.
func Validate(d *Diagram) []ValidationError {
	var errs []ValidationError

	if d == nil {
		return []ValidationError{{Type: "schema_error", Severity: "error", Message: "diagram is nil"}}
	}

	seenNodeIDs := make(map[string]bool)
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.ID == "" {
			errs = append(errs, ValidationError{
				Type: "schema_error", Severity: "error", NodeID: n.ID,
				Message: fmt.Sprintf("node at index %d has empty id", i), Suggestion: "Set node.id",
			})
			continue
		}
		if seenNodeIDs[n.ID] {
			errs = append(errs, ValidationError{
				Type: "schema_error", Severity: "error", NodeID: n.ID,
				Message: "duplicate node id: " + n.ID, Suggestion: "Use unique ids for each node",
			})
		} else {
			seenNodeIDs[n.ID] = true
		}
		if n.ComponentType() == "" {
			errs = append(errs, ValidationError{
				Type: "schema_error", Severity: "error", NodeID: n.ID,
				Message:    "node id does not encode a component type",
				Suggestion: "Use ids of the form <component_type>-<timestamp>",
			})
		}
		if n.Data == nil {
			n.Data = make(map[string]any)
		}
	}

	for i := range d.Edges {
		e := &d.Edges[i]
		switch {
		case e.Source == "" || e.Target == "":
			errs = append(errs, ValidationError{
				Type: "schema_error", Severity: "error",
				Message:    fmt.Sprintf("edge at index %d must have source and target", i),
				Suggestion: "Set edge.source and edge.target to node ids",
			})
		case !seenNodeIDs[e.Source]:
			errs = append(errs, ValidationError{
				Type: "schema_error", Severity: "error",
				Message:    "edge source node not found: " + e.Source,
				Suggestion: "Reference an existing node id",
			})
		case !seenNodeIDs[e.Target]:
			errs = append(errs, ValidationError{
				Type: "schema_error", Severity: "error",
				Message:    "edge target node not found: " + e.Target,
				Suggestion: "Reference an existing node id",
			})
		}
	}

	return errs
}

// NodeByID returns the node with the given id, or nil.
func (d *Diagram) NodeByID(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// EdgesWithTarget returns edges whose target is the given node id.
func (d *Diagram) EdgesWithTarget(targetID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Target == targetID {
			out = append(out, e)
		}
	}
	return out
}

// EdgesWithSource returns edges whose source is the given node id.
func (d *Diagram) EdgesWithSource(sourceID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == sourceID {
			out = append(out, e)
		}
	}
	return out
}

// Upstream returns the nodes connected into targetID whose component type
// is one of types, in edge order. Duplicate edges yield one entry.
func (d *Diagram) Upstream(targetID string, types ...string) []*Node {
	var out []*Node
	seen := make(map[string]bool)
	for _, e := range d.EdgesWithTarget(targetID) {
		if seen[e.Source] {
			continue
		}
		src := d.NodeByID(e.Source)
		if src == nil {
			continue
		}
		for _, t := range types {
			if src.ComponentType() == t {
				out = append(out, src)
				seen[e.Source] = true
				break
			}
		}
	}
	return out
}
