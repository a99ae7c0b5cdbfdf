package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/json-to-terraform/atc/internal/diagram"
)

func graph(ids []string, edges ...[2]string) *diagram.Diagram {
	d := &diagram.Diagram{}
	for _, id := range ids {
		d.Nodes = append(d.Nodes, diagram.Node{ID: id})
	}
	for i, e := range edges {
		d.Edges = append(d.Edges, diagram.Edge{ID: string(rune('a' + i)), Source: e[0], Target: e[1]})
	}
	return d
}

func TestResolve_Tiers(t *testing.T) {
	d := graph(
		[]string{"ec2_instance-3", "vpc-1", "subnet-2", "security_group-4"},
		[2]string{"vpc-1", "subnet-2"},
		[2]string{"vpc-1", "security_group-4"},
		[2]string{"subnet-2", "ec2_instance-3"},
		[2]string{"security_group-4", "ec2_instance-3"},
		[2]string{"subnet-2", "ec2_instance-3"},
	)

	ordered, tiers, err := Resolve(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"vpc-1"},
		{"subnet-2", "security_group-4"},
		{"ec2_instance-3"},
	}, tiers)
	assert.Equal(t, []string{"vpc-1", "subnet-2", "security_group-4", "ec2_instance-3"}, ordered)
}

func TestResolve_IgnoresSelfAndDanglingEdges(t *testing.T) {
	d := graph([]string{"vpc-1", "s3_bucket-2"},
		[2]string{"vpc-1", "vpc-1"},
		[2]string{"vpc-1", "ghost-9"},
	)
	_, tiers, err := Resolve(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"vpc-1", "s3_bucket-2"}}, tiers)
}

func TestResolve_Cycle(t *testing.T) {
	d := graph([]string{"a-1", "b-2", "c-3"},
		[2]string{"a-1", "b-2"},
		[2]string{"b-2", "a-1"},
	)
	_, _, err := Resolve(d)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "a-1")
}

func TestResolve_Empty(t *testing.T) {
	ordered, tiers, err := Resolve(&diagram.Diagram{})
	require.NoError(t, err)
	assert.Nil(t, ordered)
	assert.Nil(t, tiers)
}
