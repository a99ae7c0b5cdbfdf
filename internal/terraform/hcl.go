// Package terraform assembles generated HCL into a Terraform configuration.
package terraform

import (
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// SanitizeName converts a node id to a Terraform-safe resource name
// (vpc-1718000000000 -> vpc_1718000000000). Names must not start with a
// digit, so such ids get an "n_" prefix.
func SanitizeName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "n_" + name
	}
	return name
}

// ResourceBlock creates an empty resource "type" "name" block.
func ResourceBlock(resourceType, name string) *hclwrite.Block {
	return hclwrite.NewBlock("resource", []string{resourceType, name})
}

// SetAttributeStr sets a string attribute, skipping empty values.
func SetAttributeStr(body *hclwrite.Body, name, value string) {
	if value != "" {
		body.SetAttributeValue(name, cty.StringVal(value))
	}
}

// SetAttributeBool sets a bool attribute.
func SetAttributeBool(body *hclwrite.Body, name string, value bool) {
	body.SetAttributeValue(name, cty.BoolVal(value))
}

// SetAttributeInt sets a number attribute.
func SetAttributeInt(body *hclwrite.Body, name string, value int) {
	body.SetAttributeValue(name, cty.NumberIntVal(int64(value)))
}

// SetAttributeMap sets a map(string) attribute such as tags; empty maps are skipped.
func SetAttributeMap(body *hclwrite.Body, name string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	body.SetAttributeValue(name, cty.MapVal(vals))
}

// BlockToBytes formats a single block.
func BlockToBytes(block *hclwrite.Block) []byte {
	return BlocksToBytes(block)
}

// BlocksToBytes formats blocks into one document separated by blank lines.
func BlocksToBytes(blocks ...*hclwrite.Block) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, b := range blocks {
		if i > 0 {
			body.AppendNewline()
		}
		body.AppendBlock(b)
	}
	return f.Bytes()
}
