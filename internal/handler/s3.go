package handler

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type s3Handler struct{ kind }

func init() {
	registry.Default.Register(s3Handler{kind{"s3_bucket", registry.ProviderAWS, "aws_s3_bucket"}})
}

func (s3Handler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	var errs []result.Error
	if orLabel(node, "bucket") == "" {
		errs = append(errs, result.Error{
			Type: "validation_error", Severity: "error", NodeID: node.ID,
			Message: "bucket name or label is required", Suggestion: "Set bucket or the node label",
		})
	}
	return errs, nil
}

// GenerateHCL emits the bucket. Versioning and public access settings are
// separate resources in AWS provider v5 and are appended after the bucket.
func (h s3Handler) GenerateHCL(node *diagram.Node, _ *diagram.Diagram, _ RefMap) ([]byte, error) {
	name := terraform.SanitizeName(node.ID)
	bucket := h.block(node)
	body := bucket.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "bucket", orLabel(node, "bucket"))
	if diagram.GetBool(p, "force_destroy") {
		terraform.SetAttributeBool(body, "force_destroy", true)
	}
	terraform.SetAttributeMap(body, "tags", tagsWithName(node))
	blocks := []*hclwrite.Block{bucket}

	if diagram.GetBool(p, "versioning") {
		v := terraform.ResourceBlock("aws_s3_bucket_versioning", name)
		v.Body().SetAttributeTraversal("bucket", refTraversal(h.TerraformType()+"."+name, "id"))
		v.Body().AppendNewBlock("versioning_configuration", nil).Body().
			SetAttributeValue("status", cty.StringVal("Enabled"))
		blocks = append(blocks, v)
	}
	if diagram.GetBool(p, "block_public_acls") {
		pab := terraform.ResourceBlock("aws_s3_bucket_public_access_block", name)
		pb := pab.Body()
		pb.SetAttributeTraversal("bucket", refTraversal(h.TerraformType()+"."+name, "id"))
		for _, attr := range []string{"block_public_acls", "block_public_policy", "ignore_public_acls", "restrict_public_buckets"} {
			terraform.SetAttributeBool(pb, attr, true)
		}
		blocks = append(blocks, pab)
	}
	return terraform.BlocksToBytes(blocks...), nil
}
