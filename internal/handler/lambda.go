package handler

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

const (
	defaultLambdaMemory  = 128
	defaultLambdaTimeout = 3
)

type lambdaHandler struct{ kind }

func init() {
	registry.Default.Register(lambdaHandler{kind{"lambda_function", registry.ProviderAWS, "aws_lambda_function"}})
}

func (lambdaHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	errs := required(nil, node, "runtime", "Set runtime (e.g. python3.12)")
	errs = required(errs, node, "handler", "Set handler (e.g. index.handler)")
	errs = required(errs, node, "role", "Set role to the execution role ARN")
	return errs, nil
}

// GenerateHCL puts the function in a vpc_config when subnets or security
// groups are connected into it.
func (h lambdaHandler) GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "function_name", orLabel(node, "function_name"))
	terraform.SetAttributeStr(body, "role", diagram.GetStr(p, "role"))
	terraform.SetAttributeStr(body, "runtime", diagram.GetStr(p, "runtime"))
	terraform.SetAttributeStr(body, "handler", diagram.GetStr(p, "handler"))
	terraform.SetAttributeStr(body, "filename", diagram.GetStr(p, "filename"))

	mem := diagram.GetInt(p, "memory_size")
	if mem <= 0 {
		mem = defaultLambdaMemory
	}
	terraform.SetAttributeInt(body, "memory_size", mem)
	timeout := diagram.GetInt(p, "timeout")
	if timeout <= 0 {
		timeout = defaultLambdaTimeout
	}
	terraform.SetAttributeInt(body, "timeout", timeout)

	if env := diagram.GetStrMap(p, "environment_variables"); len(env) > 0 {
		vars := make(map[string]cty.Value, len(env))
		for k, v := range env {
			vars[k] = cty.StringVal(v)
		}
		body.AppendNewBlock("environment", nil).Body().SetAttributeValue("variables", cty.MapVal(vars))
	}

	subnets := upstreamRefs(node, d, refs, "subnet")
	groups := upstreamRefs(node, d, refs, "security_group")
	if len(subnets) > 0 || len(groups) > 0 {
		vpc := body.AppendNewBlock("vpc_config", nil).Body()
		setRefList(vpc, "subnet_ids", subnets, "id")
		setRefList(vpc, "security_group_ids", groups, "id")
	}

	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	return render(block), nil
}
