package terraform

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Provider describes the Terraform provider a cloud needs.
type Provider struct {
	Cloud   string // "aws" or "gcp"
	Name    string // provider local name
	Source  string
	Version string
}

var providers = map[string]Provider{
	"aws": {Cloud: "aws", Name: "aws", Source: "hashicorp/aws", Version: "~> 5.0"},
	"gcp": {Cloud: "gcp", Name: "google", Source: "hashicorp/google", Version: "~> 5.0"},
}

// LookupProvider returns the Terraform provider for a cloud.
func LookupProvider(cloud string) (Provider, bool) {
	p, ok := providers[cloud]
	return p, ok
}

// Variables carries the values written to terraform.tfvars.
type Variables struct {
	AWSRegion  string
	GCPProject string
	GCPRegion  string
}

// Default variable values.
const (
	DefaultAWSRegion = "us-east-1"
	DefaultGCPRegion = "us-central1"
)

// VersionsTF renders the terraform block and one provider block per cloud.
func VersionsTF(clouds []string) []byte {
	ps := resolve(clouds)
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	tf := body.AppendNewBlock("terraform", nil).Body()
	tf.SetAttributeValue("required_version", cty.StringVal(">= 1.0"))
	req := tf.AppendNewBlock("required_providers", nil).Body()
	for _, p := range ps {
		req.SetAttributeValue(p.Name, cty.ObjectVal(map[string]cty.Value{
			"source":  cty.StringVal(p.Source),
			"version": cty.StringVal(p.Version),
		}))
	}

	for _, p := range ps {
		body.AppendNewline()
		prov := body.AppendNewBlock("provider", []string{p.Name}).Body()
		switch p.Cloud {
		case "aws":
			prov.SetAttributeTraversal("region", varTraversal("aws_region"))
		case "gcp":
			prov.SetAttributeTraversal("project", varTraversal("gcp_project"))
			prov.SetAttributeTraversal("region", varTraversal("gcp_region"))
		}
	}
	return f.Bytes()
}

// VariablesTF declares the provider variables of each cloud.
func VariablesTF(clouds []string) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	first := true
	variable := func(name, description string, def *string) {
		if !first {
			body.AppendNewline()
		}
		first = false
		vb := body.AppendNewBlock("variable", []string{name}).Body()
		vb.SetAttributeValue("description", cty.StringVal(description))
		vb.SetAttributeTraversal("type", hcl.Traversal{hcl.TraverseRoot{Name: "string"}})
		if def != nil {
			vb.SetAttributeValue("default", cty.StringVal(*def))
		}
	}
	for _, p := range resolve(clouds) {
		switch p.Cloud {
		case "aws":
			region := DefaultAWSRegion
			variable("aws_region", "AWS region", &region)
		case "gcp":
			variable("gcp_project", "GCP project id", nil)
			region := DefaultGCPRegion
			variable("gcp_region", "GCP region", &region)
		}
	}
	return f.Bytes()
}

// Output is one generated output value.
type Output struct {
	Name      string
	Address   string
	Attribute string
}

// OutputsTF renders one output per resource address.
func OutputsTF(outputs []Output) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, o := range outputs {
		if i > 0 {
			body.AppendNewline()
		}
		ob := body.AppendNewBlock("output", []string{o.Name}).Body()
		t := hcl.Traversal{}
		for j, part := range splitAddress(o.Address) {
			if j == 0 {
				t = append(t, hcl.TraverseRoot{Name: part})
			} else {
				t = append(t, hcl.TraverseAttr{Name: part})
			}
		}
		t = append(t, hcl.TraverseAttr{Name: o.Attribute})
		ob.SetAttributeTraversal("value", t)
	}
	return f.Bytes()
}

// Tfvars renders terraform.tfvars for the clouds in use. Unset values are
// omitted so variable defaults apply.
func Tfvars(clouds []string, v Variables) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for _, p := range resolve(clouds) {
		switch p.Cloud {
		case "aws":
			region := v.AWSRegion
			if region == "" {
				region = DefaultAWSRegion
			}
			body.SetAttributeValue("aws_region", cty.StringVal(region))
		case "gcp":
			if v.GCPProject != "" {
				body.SetAttributeValue("gcp_project", cty.StringVal(v.GCPProject))
			}
			region := v.GCPRegion
			if region == "" {
				region = DefaultGCPRegion
			}
			body.SetAttributeValue("gcp_region", cty.StringVal(region))
		}
	}
	return f.Bytes()
}

func resolve(clouds []string) []Provider {
	seen := make(map[string]bool)
	var out []Provider
	for _, c := range clouds {
		p, ok := providers[c]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cloud < out[j].Cloud })
	return out
}

func splitAddress(addr string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(addr); i++ {
		if addr[i] == '.' {
			parts = append(parts, addr[start:i])
			start = i + 1
		}
	}
	return append(parts, addr[start:])
}

// varTraversal builds var.<name>.
func varTraversal(name string) hcl.Traversal {
	return hcl.Traversal{
		hcl.TraverseRoot{Name: "var"},
		hcl.TraverseAttr{Name: name},
	}
}
