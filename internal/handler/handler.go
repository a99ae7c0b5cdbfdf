// Package handler renders diagram nodes into Terraform resource blocks.
// Each file registers one component type into registry.Default; importing
// the package for its side effects is enough to enable them all.
package handler

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

// RefMap is registry.RefMap, aliased so handler signatures stay short.
type RefMap = registry.RefMap

// kind carries the static identity every handler reports.
type kind struct {
	componentType string
	provider      string
	terraformType string
}

func (k kind) ComponentType() string { return k.componentType }
func (k kind) Provider() string      { return k.provider }
func (k kind) TerraformType() string { return k.terraformType }

// block starts the resource block for node.
func (k kind) block(node *diagram.Node) *hclwrite.Block {
	return terraform.ResourceBlock(k.terraformType, terraform.SanitizeName(node.ID))
}

// refTraversal builds the traversal for a resource address plus attribute,
// e.g. aws_vpc.vpc_1.id.
func refTraversal(addr, attr string) hcl.Traversal {
	var t hcl.Traversal
	for i, part := range strings.Split(addr, ".") {
		if i == 0 {
			t = append(t, hcl.TraverseRoot{Name: part})
			continue
		}
		t = append(t, hcl.TraverseAttr{Name: part})
	}
	if attr != "" {
		t = append(t, hcl.TraverseAttr{Name: attr})
	}
	return t
}

// upstreamRefs returns the addresses of already generated nodes of the
// given types connected into node.
func upstreamRefs(node *diagram.Node, d *diagram.Diagram, refs RefMap, types ...string) []string {
	var out []string
	for _, src := range d.Upstream(node.ID, types...) {
		if addr, ok := refs[src.ID]; ok {
			out = append(out, addr)
		}
	}
	return out
}

// setRefList writes attr = [addr.field, ...].
func setRefList(body *hclwrite.Body, attr string, addrs []string, field string) {
	if len(addrs) == 0 {
		return
	}
	tokens := make([]hclwrite.Tokens, len(addrs))
	for i, addr := range addrs {
		tokens[i] = hclwrite.TokensForTraversal(refTraversal(addr, field))
	}
	body.SetAttributeRaw(attr, hclwrite.TokensForTuple(tokens))
}

// required appends an error when key is blank on node.
func required(errs []result.Error, node *diagram.Node, key, suggestion string) []result.Error {
	if diagram.GetStr(node.Data, key) != "" {
		return errs
	}
	return append(errs, result.Error{
		Type: "validation_error", Severity: "error", NodeID: node.ID,
		Message: key + " is required", Suggestion: suggestion,
	})
}

// tagsWithName returns the tags property with Name defaulted to the label.
func tagsWithName(node *diagram.Node) map[string]string {
	tags := diagram.GetStrMap(node.Data, "tags")
	if label := node.Label(); label != "" {
		if tags == nil {
			tags = make(map[string]string)
		}
		if tags["Name"] == "" {
			tags["Name"] = label
		}
	}
	return tags
}

// orLabel returns the key's value, falling back to the node label.
func orLabel(node *diagram.Node, key string) string {
	if v := diagram.GetStr(node.Data, key); v != "" {
		return v
	}
	return node.Label()
}

func render(block *hclwrite.Block) []byte {
	return terraform.BlockToBytes(block)
}
