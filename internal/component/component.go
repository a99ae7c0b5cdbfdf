// Package component describes the draggable component catalog: the entries
// shown in the palette and the property schema each component type carries.
package component

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned when a provider has no component of the requested type.
var ErrNotFound = errors.New("component not found")

// PropertyType is the declared input type of a component property.
type PropertyType string

const (
	PropertyString PropertyType = "string"
	PropertyEnum   PropertyType = "enum"
	PropertyNumber PropertyType = "number"
)

// Definition is a catalog entry for a draggable component type.
type Definition struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IconPath string `json:"icon_path"`
}

// Property is one entry of a component's property schema.
type Property struct {
	Name     string       `json:"name" yaml:"name" validate:"required"`
	Type     PropertyType `json:"type" yaml:"type" validate:"required,oneof=string enum number"`
	Required bool         `json:"required" yaml:"required"`
	Default  any          `json:"default,omitempty" yaml:"default,omitempty"`
	Options  []string     `json:"options,omitempty" yaml:"options,omitempty" validate:"omitempty,dive,required"`
}

// Detail is the full component document served by the schema service.
type Detail struct {
	Name        string     `json:"name" validate:"required"`
	Type        string     `json:"type" validate:"required"`
	Icon        string     `json:"icon,omitempty"`
	Description string     `json:"description,omitempty"`
	Properties  []Property `json:"properties" validate:"dive"`
}

// PropertyNames returns the set of property names declared by the schema.
func (d *Detail) PropertyNames() map[string]bool {
	names := make(map[string]bool, len(d.Properties))
	for _, p := range d.Properties {
		names[p.Name] = true
	}
	return names
}

// Property looks up a property by name.
func (d *Detail) Property(name string) (Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

var structValidator = validator.New()

// Validate checks a component document loaded from disk or the wire.
func (d *Detail) Validate() error {
	if err := structValidator.Struct(d); err != nil {
		return fmt.Errorf("invalid component %q: %w", d.Type, err)
	}
	seen := make(map[string]bool, len(d.Properties))
	for _, p := range d.Properties {
		if seen[p.Name] {
			return fmt.Errorf("invalid component %q: duplicate property %q", d.Type, p.Name)
		}
		seen[p.Name] = true
		if p.Type == PropertyEnum && len(p.Options) == 0 {
			return fmt.Errorf("invalid component %q: enum property %q has no options", d.Type, p.Name)
		}
	}
	return nil
}

// Catalog is the contract of the component catalog and schema services.
type Catalog interface {
	// List returns the palette for a cloud provider.
	List(ctx context.Context, provider string) ([]Definition, error)
	// Get returns the component document, including its property schema.
	Get(ctx context.Context, provider, componentType string) (*Detail, error)
}

// FindDefinition returns the definition with the given type.
func FindDefinition(defs []Definition, componentType string) (Definition, bool) {
	for _, d := range defs {
		if d.Type == componentType {
			return d, true
		}
	}
	return Definition{}, false
}
