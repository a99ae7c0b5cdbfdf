package handler

import (
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

type gcpNetworkHandler struct{ kind }

type gcpStorageHandler struct{ kind }

type gcpInstanceHandler struct{ kind }

func init() {
	registry.Default.Register(gcpNetworkHandler{kind{"gcp_vpc_network", registry.ProviderGCP, "google_compute_network"}})
	registry.Default.Register(gcpStorageHandler{kind{"gcp_cloud_storage", registry.ProviderGCP, "google_storage_bucket"}})
	registry.Default.Register(gcpInstanceHandler{kind{"gcp_compute_instance", registry.ProviderGCP, "google_compute_instance"}})
}

// gcpName is the resource name: the name property or the label, lowercased
// with spaces turned into dashes as GCP requires.
func gcpName(node *diagram.Node) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(orLabel(node, "name"))), " ", "-")
}

func requireName(node *diagram.Node) []result.Error {
	if gcpName(node) != "" {
		return nil
	}
	return []result.Error{{
		Type: "validation_error", Severity: "error", NodeID: node.ID,
		Message: "name or label is required", Suggestion: "Set name or the node label",
	}}
}

// gcpLabels lowercases tag keys for use as GCP labels.
func gcpLabels(node *diagram.Node) map[string]string {
	tags := diagram.GetStrMap(node.Data, "labels")
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[strings.ToLower(k)] = strings.ToLower(v)
	}
	return out
}

func (gcpNetworkHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	return requireName(node), nil
}

func (h gcpNetworkHandler) GenerateHCL(node *diagram.Node, _ *diagram.Diagram, _ RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()

	terraform.SetAttributeStr(body, "name", gcpName(node))
	auto := true
	if _, set := node.Data["auto_create_subnetworks"]; set {
		auto = diagram.GetBool(node.Data, "auto_create_subnetworks")
	}
	terraform.SetAttributeBool(body, "auto_create_subnetworks", auto)
	terraform.SetAttributeStr(body, "routing_mode", diagram.GetStr(node.Data, "routing_mode"))
	return render(block), nil
}

func (gcpStorageHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	var warns []result.Warning
	if !diagram.GetBool(node.Data, "uniform_bucket_level_access") {
		warns = append(warns, result.Warning{
			Type: "best_practice", Severity: "warning", NodeID: node.ID,
			Message:    "uniform bucket-level access is disabled",
			Suggestion: "Set uniform_bucket_level_access to true",
		})
	}
	return requireName(node), warns
}

func (h gcpStorageHandler) GenerateHCL(node *diagram.Node, _ *diagram.Diagram, _ RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "name", gcpName(node))
	location := diagram.GetStr(p, "location")
	if location == "" {
		location = "US"
	}
	terraform.SetAttributeStr(body, "location", location)
	terraform.SetAttributeStr(body, "storage_class", diagram.GetStr(p, "storage_class"))
	terraform.SetAttributeBool(body, "uniform_bucket_level_access", diagram.GetBool(p, "uniform_bucket_level_access"))
	if diagram.GetBool(p, "versioning") {
		body.AppendNewBlock("versioning", nil).Body().SetAttributeValue("enabled", cty.True)
	}
	terraform.SetAttributeMap(body, "labels", gcpLabels(node))
	return render(block), nil
}

func (gcpInstanceHandler) Validate(node *diagram.Node) ([]result.Error, []result.Warning) {
	errs := requireName(node)
	errs = required(errs, node, "machine_type", "Set machine_type (e.g. e2-medium)")
	errs = required(errs, node, "zone", "Set zone (e.g. us-central1-a)")
	return errs, nil
}

// GenerateHCL attaches the instance to a connected VPC network, or to the
// project's default network.
func (h gcpInstanceHandler) GenerateHCL(node *diagram.Node, d *diagram.Diagram, refs RefMap) ([]byte, error) {
	block := h.block(node)
	body := block.Body()
	p := node.Data

	terraform.SetAttributeStr(body, "name", gcpName(node))
	terraform.SetAttributeStr(body, "machine_type", diagram.GetStr(p, "machine_type"))
	terraform.SetAttributeStr(body, "zone", diagram.GetStr(p, "zone"))

	image := diagram.GetStr(p, "image")
	if image == "" {
		image = "debian-cloud/debian-12"
	}
	disk := body.AppendNewBlock("boot_disk", nil).Body()
	disk.AppendNewBlock("initialize_params", nil).Body().SetAttributeValue("image", cty.StringVal(image))

	nic := body.AppendNewBlock("network_interface", nil).Body()
	if networks := upstreamRefs(node, d, refs, "gcp_vpc_network"); len(networks) > 0 {
		nic.SetAttributeTraversal("network", refTraversal(networks[0], "id"))
	} else {
		nic.SetAttributeValue("network", cty.StringVal("default"))
	}

	terraform.SetAttributeMap(body, "labels", gcpLabels(node))
	return render(block), nil
}
