package handler

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type securityGroupHandler struct{ kind }

func init() {
	registry.Default.Register(securityGroupHandler{kind{"security_group", registry.ProviderAWS, "aws_security_group"}})
}

func (securityGroupHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	var errs []result.Error
	var warns []result.Warning
	if orLabel(node, "name") == "" {
		errs = append(errs, result.Error{
			Type: "validation_error", Severity: "error", NodeID: node.ID,
			Message: "name or label is required", Suggestion: "Set name or the node label",
		})
	}
	for _, rule := range rules(node.Data["ingress"]) {
		for _, cidr := range cidrs(rule) {
			if cidr == "0.0.0.0/0" {
				warns = append(warns, result.Warning{
					Type: "best_practice", Severity: "warning", NodeID: node.ID,
					Message:    "ingress open to 0.0.0.0/0",
					Suggestion: "Restrict ingress cidr_blocks",
				})
			}
		}
	}
	return errs, warns
}

// GenerateHCL takes vpc_id from a VPC connected into the group. Without
// egress rules an allow-all egress rule is emitted.
func (h securityGroupHandler) GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "name", orLabel(node, "name"))
	terraform.SetAttributeStr(body, "description", diagram.GetStr(p, "description"))
	if vpcs := upstreamRefs(node, d, refs, "vpc"); len(vpcs) > 0 {
		body.SetAttributeTraversal("vpc_id", refTraversal(vpcs[0], "id"))
	}

	for _, rule := range rules(p["ingress"]) {
		appendRule(body, "ingress", rule)
	}
	egress := rules(p["egress"])
	if len(egress) == 0 {
		egress = []map[string]any{{
			"from_port": float64(0), "to_port": float64(0), "protocol": "-1",
			"cidr_blocks": []any{"0.0.0.0/0"},
		}}
	}
	for _, rule := range egress {
		appendRule(body, "egress", rule)
	}

	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	return render(block), nil
}

func rules(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, r := range list {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func cidrs(rule map[string]any) []string {
	return diagram.GetStrList(rule, "cidr_blocks")
}

func appendRule(body *hclwrite.Body, blockType string, rule map[string]any) {
	rb := body.AppendNewBlock(blockType, nil).Body()
	terraform.SetAttributeInt(rb, "from_port", diagram.GetInt(rule, "from_port"))
	terraform.SetAttributeInt(rb, "to_port", diagram.GetInt(rule, "to_port"))
	protocol := diagram.GetStr(rule, "protocol")
	if protocol == "" {
		protocol = "tcp"
	}
	rb.SetAttributeValue("protocol", cty.StringVal(protocol))
	if list := cidrs(rule); len(list) > 0 {
		vals := make([]cty.Value, len(list))
		for i, c := range list {
			vals[i] = cty.StringVal(c)
		}
		rb.SetAttributeValue("cidr_blocks", cty.ListVal(vals))
	}
}
