package handler

import (
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type ec2Handler struct{ kind }

func init() {
	registry.Default.Register(ec2Handler{kind{"ec2_instance", registry.ProviderAWS, "aws_instance"}})
}

func (ec2Handler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	errs := required(nil, node, "ami", "Set ami")
	errs = required(errs, node, "instance_type", "Set instance_type (e.g. t3.micro)")
	return errs, nil
}

// GenerateHCL places the instance in a connected subnet and attaches every
// connected security group.
func (h ec2Handler) GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "ami", diagram.GetStr(p, "ami"))
	terraform.SetAttributeStr(body, "instance_type", diagram.GetStr(p, "instance_type"))
	terraform.SetAttributeStr(body, "key_name", diagram.GetStr(p, "key_name"))
	if subnets := upstreamRefs(node, d, refs, "subnet"); len(subnets) > 0 {
		body.SetAttributeTraversal("subnet_id", refTraversal(subnets[0], "id"))
	}
	setRefList(body, "vpc_security_group_ids", upstreamRefs(node, d, refs, "security_group"), "id")
	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	return render(block), nil
}
