package handler

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type rdsHandler struct{ kind }

func init() {
	registry.Default.Register(rdsHandler{kind{"rds_instance", registry.ProviderAWS, "aws_db_instance"}})
}

func (rdsHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	errs := required(nil, node, "engine", "Set engine (e.g. postgres)")
	errs = required(errs, node, "instance_class", "Set instance_class (e.g. db.t3.micro)")
	if diagram.GetInt(node.Data, "allocated_storage") <= 0 {
		errs = append(errs, result.Error{
			Type: "validation_error", Severity: "error", NodeID: node.ID,
			Message: "allocated_storage is required", Suggestion: "Set allocated_storage (GB)",
		})
	}
	var warns []result.Warning
	if diagram.GetStr(node.Data, "password") != "" {
		warns = append(warns, result.Warning{
			Type: "best_practice", Severity: "warning", NodeID: node.ID,
			Message:    "password is stored in the diagram",
			Suggestion: "Use manage_master_user_password or a secrets manager",
		})
	}
	return errs, warns
}

// GenerateHCL attaches connected security groups.
func (h rdsHandler) GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "engine", diagram.GetStr(p, "engine"))
	terraform.SetAttributeStr(body, "engine_version", diagram.GetStr(p, "engine_version"))
	terraform.SetAttributeStr(body, "instance_class", diagram.GetStr(p, "instance_class"))
	terraform.SetAttributeInt(body, "allocated_storage", diagram.GetInt(p, "allocated_storage"))
	terraform.SetAttributeStr(body, "storage_type", diagram.GetStr(p, "storage_type"))
	terraform.SetAttributeStr(body, "db_name", diagram.GetStr(p, "db_name"))
	terraform.SetAttributeStr(body, "username", diagram.GetStr(p, "username"))
	if pw := diagram.GetStr(p, "password"); pw != "" {
		body.SetAttributeValue("password", cty.StringVal(pw))
	}
	terraform.SetAttributeStr(body, "db_subnet_group_name", diagram.GetStr(p, "db_subnet_group_name"))
	if n := diagram.GetInt(p, "backup_retention_period"); n > 0 {
		terraform.SetAttributeInt(body, "backup_retention_period", n)
	}
	terraform.SetAttributeBool(body, "multi_az", diagram.GetBool(p, "multi_az"))
	terraform.SetAttributeBool(body, "skip_final_snapshot", diagram.GetBool(p, "skip_final_snapshot"))
	setRefList(body, "vpc_security_group_ids", upstreamRefs(node, d, refs, "security_group"), "id")
	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	return render(block), nil
}
