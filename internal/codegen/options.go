package codegen

import "github.com/json-to-terraform/atc/internal/registry"

// Options configures generation.
type Options struct {
	// EmitTfvars writes terraform.tfvars when true.
	EmitTfvars bool
	// MaxParallel bounds handlers run at once within a tier (0 = NumCPU).
	MaxParallel int
	// Provider is the cloud whose provider block is emitted when the
	// diagram has no nodes to infer it from.
	Provider string
	// Region overrides the provider region variable default.
	Region string
	// Project is the GCP project id.
	Project string
}

// DefaultOptions returns the defaults: tfvars on, automatic parallelism, AWS.
func DefaultOptions() Options {
	return Options{
		EmitTfvars: true,
		Provider:   registry.ProviderAWS,
	}
}
