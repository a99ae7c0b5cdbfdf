package handler

import (
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type vpcHandler struct{ kind }

func init() {
	registry.Default.Register(vpcHandler{kind{"vpc", registry.ProviderAWS, "aws_vpc"}})
}

func (vpcHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	errs := required(nil, node, "cidr_block", "Set cidr_block (e.g. 10.0.0.0/16)")
	return errs, nil
}

func (h vpcHandler) GenerateHCL(node *diagram.Node, _ *diagram.Diagram, _ RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "cidr_block", diagram.GetStr(p, "cidr_block"))
	terraform.SetAttributeBool(body, "enable_dns_hostnames", diagram.GetBool(p, "enable_dns_hostnames"))
	terraform.SetAttributeBool(body, "enable_dns_support", diagram.GetBool(p, "enable_dns_support"))
	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	return render(block), nil
}
