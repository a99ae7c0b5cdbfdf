package handler

import (
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type subnetHandler struct{ kind }

func init() {
	registry.Default.Register(subnetHandler{kind{"subnet", registry.ProviderAWS, "aws_subnet"}})
}

func (subnetHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	errs := required(nil, node, "cidr_block", "Set cidr_block (e.g. 10.0.1.0/24)")
	return errs, nil
}

// GenerateHCL takes vpc_id from a VPC connected into the subnet.
func (h subnetHandler) GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	if vpcs := upstreamRefs(node, d, refs, "vpc"); len(vpcs) > 0 {
		body.SetAttributeTraversal("vpc_id", refTraversal(vpcs[0], "id"))
	}
	terraform.SetAttributeStr(body, "cidr_block", diagram.GetStr(p, "cidr_block"))
	terraform.SetAttributeStr(body, "availability_zone", diagram.GetStr(p, "availability_zone"))
	if diagram.GetBool(p, "map_public_ip_on_launch") {
		terraform.SetAttributeBool(body, "map_public_ip_on_launch", true)
	}
	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	return render(block), nil
}
