// Package registry maps diagram component types to the Terraform handlers
// that render them. Handlers register themselves into Default from init.
package registry

import (
	"sort"
	"sync"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/result"
)

// Cloud providers a handler can target.
const (
	ProviderAWS = "aws"
	ProviderGCP = "gcp"
)

// RefMap maps node ids to Terraform resource addresses
// (e.g. "vpc-1718000000000" -> "aws_vpc.vpc_1718000000000").
type RefMap map[string]string

// ResourceHandler renders one component type.
type ResourceHandler interface {
	// ComponentType is the node id prefix the handler serves.
	ComponentType() string
	// Provider is the cloud provider whose Terraform provider the block needs.
	Provider() string
	// TerraformType is the resource type of the generated block.
	TerraformType() string
	Validate(node *diagram.Node) ([]result.Error, []result.Warning)
	GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error)
}

// Default is the global handler registry.
var Default = New()

// Registry holds resource handlers keyed by component type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ResourceHandler
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]ResourceHandler)}
}

// Register adds h under its component type, replacing any previous handler.
func (r *Registry) Register(h ResourceHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.ComponentType()] = h
}

// Get returns the handler for a component type.
func (r *Registry) Get(componentType string) (ResourceHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[componentType]
	return h, ok
}

// SupportedTypes returns the registered component types, sorted. With a
// provider argument only that provider's types are listed.
func (r *Registry) SupportedTypes(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t, h := range r.handlers {
		if provider != "" && h.Provider() != provider {
			continue
		}
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
