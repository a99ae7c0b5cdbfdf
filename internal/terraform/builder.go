package terraform

import (
	"bytes"
)

// File names produced by Build.
const (
	VersionsFile  = "versions.tf"
	VariablesFile = "variables.tf"
	MainFile      = "main.tf"
	OutputsFile   = "outputs.tf"
	TfvarsFile    = "terraform.tfvars"
)

// Builder collects generated resource blocks in dependency order and
// renders the complete configuration for a set of clouds.
type Builder struct {
	clouds     []string
	resources  [][]byte
	outputs    []Output
	vars       Variables
	emitTfvars bool
}

// NewBuilder returns a builder for the given clouds.
func NewBuilder(clouds []string, emitTfvars bool) *Builder {
	return &Builder{clouds: clouds, emitTfvars: emitTfvars}
}

// AddResource appends rendered HCL for one node and exports its id as
// "<name>_id" when address is set.
func (b *Builder) AddResource(address string, block []byte) {
	if len(block) == 0 {
		return
	}
	b.resources = append(b.resources, block)
	if address == "" {
		return
	}
	name := address
	if parts := splitAddress(address); len(parts) == 2 {
		name = parts[1]
	}
	b.outputs = append(b.outputs, Output{Name: name + "_id", Address: address, Attribute: "id"})
}

// SetVariables sets the values written to terraform.tfvars.
func (b *Builder) SetVariables(v Variables) {
	b.vars = v
}

// Build returns filename -> content.
func (b *Builder) Build() map[string][]byte {
	out := map[string][]byte{
		VersionsFile:  VersionsTF(b.clouds),
		VariablesFile: VariablesTF(b.clouds),
	}
	var main bytes.Buffer
	for i, r := range b.resources {
		if i > 0 {
			main.WriteString("\n")
		}
		main.Write(r)
	}
	if main.Len() > 0 {
		out[MainFile] = main.Bytes()
	}
	if len(b.outputs) > 0 {
		out[OutputsFile] = OutputsTF(b.outputs)
	}
	if b.emitTfvars {
		out[TfvarsFile] = Tfvars(b.clouds, b.vars)
	}
	return out
}
