package editor

import (
	"github.com/json-to-terraform/atc/internal/component"
)

// Input kinds rendered by the property inspector.
const (
	InputSelect = "select"
	InputNumber = "number"
	InputText   = "text"
)

// Field is one row of the property form.
type Field struct {
	Name     string                 `json:"name"`
	Type     component.PropertyType `json:"type"`
	Input    string                 `json:"input"`
	Required bool                   `json:"required"`
	Value    any                    `json:"value"`
	Options  []string               `json:"options,omitempty"`
}

// Form is the property inspector for the selected node.
type Form struct {
	NodeID string  `json:"node_id"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Inspect builds the edit form for a selection, in schema order. It returns
// nil when the selection has no schema: the node stays selected but is not
// editable.
func Inspect(sel *Selection) *Form {
	if !sel.HasSchema() {
		return nil
	}
	f := &Form{
		NodeID: sel.Node.ID,
		Label:  sel.Node.Label(),
		Fields: make([]Field, 0, len(sel.Detail.Properties)),
	}
	for _, p := range sel.Detail.Properties {
		field := Field{
			Name:     p.Name,
			Type:     p.Type,
			Input:    inputFor(p.Type),
			Required: p.Required,
			Value:    p.Default,
			Options:  p.Options,
		}
		if v, ok := sel.Node.Data[p.Name]; ok && !isBlank(v) {
			field.Value = v
		}
		// No value and no default: the form shows exactly what the node holds.
		if field.Value == nil {
			field.Value = ""
		}
		f.Fields = append(f.Fields, field)
	}
	return f
}

// MissingRequired lists required fields without a value. Saving is never
// blocked on it; it drives the required marker only.
func MissingRequired(f *Form) []string {
	if f == nil {
		return nil
	}
	var out []string
	for _, field := range f.Fields {
		if field.Required && isBlank(field.Value) {
			out = append(out, field.Name)
		}
	}
	return out
}

func inputFor(t component.PropertyType) string {
	switch t {
	case component.PropertyEnum:
		return InputSelect
	case component.PropertyNumber:
		return InputNumber
	default:
		return InputText
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Inspector returns the form for the current selection, or nil.
func (c *Canvas) Inspector() *Form {
	sel, ok := c.Selected()
	if !ok {
		return nil
	}
	return Inspect(sel)
}
