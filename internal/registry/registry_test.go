package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/result"
)

type stubHandler struct{ typ, provider string }

func (s stubHandler) ComponentType() string { return s.typ }
func (s stubHandler) Provider() string      { return s.provider }
func (s stubHandler) TerraformType() string { return s.provider + "_" + s.typ }
func (stubHandler) Validate(*diagram.Node) ([]result.Error, []result.Warning) {
	return nil, nil
}
func (stubHandler) GenerateHCL(*diagram.Node, *diagram.Diagram, RefMap) ([]byte, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := New()
	r.Register(stubHandler{"vpc", ProviderAWS})
	r.Register(stubHandler{"gcp_cloud_storage", ProviderGCP})
	r.Register(stubHandler{"subnet", ProviderAWS})

	h, ok := r.Get("vpc")
	assert.True(t, ok)
	assert.Equal(t, "aws_vpc", h.TerraformType())

	_, ok = r.Get("lambda")
	assert.False(t, ok)

	assert.Equal(t, []string{"gcp_cloud_storage", "subnet", "vpc"}, r.SupportedTypes(""))
	assert.Equal(t, []string{"subnet", "vpc"}, r.SupportedTypes(ProviderAWS))
	assert.Equal(t, []string{"gcp_cloud_storage"}, r.SupportedTypes(ProviderGCP))
}
