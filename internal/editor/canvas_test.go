package editor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
)

// fakeCatalog serves fixed definitions. A type listed in gates blocks Get
// until its channel is closed; started receives the type when Get begins.
type fakeCatalog struct {
	defs    []component.Definition
	details map[string]*component.Detail
	listErr error

	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		defs: []component.Definition{
			{Name: "S3 Bucket", Type: "s3_bucket", IconPath: "/api/atc/aws/icons/s3.svg"},
			{Name: "VPC", Type: "vpc", IconPath: "/api/atc/aws/icons/vpc.svg"},
			{Name: "Broken", Type: "broken", IconPath: "/api/atc/aws/icons/broken.svg"},
		},
		details: map[string]*component.Detail{
			"s3_bucket": {Name: "S3 Bucket", Type: "s3_bucket", Properties: []component.Property{
				{Name: "bucket", Type: component.PropertyString, Required: true},
				{Name: "acl", Type: component.PropertyEnum, Default: "private", Options: []string{"private", "public-read"}},
			}},
			"vpc": {Name: "VPC", Type: "vpc", Properties: []component.Property{
				{Name: "cidr_block", Type: component.PropertyString, Required: true, Default: "10.0.0.0/16"},
				{Name: "max_azs", Type: component.PropertyNumber},
			}},
		},
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeCatalog) List(_ context.Context, _ string) ([]component.Definition, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]component.Definition(nil), f.defs...), nil
}

func (f *fakeCatalog) Get(ctx context.Context, _ string, componentType string) (*component.Detail, error) {
	f.mu.Lock()
	gate := f.gates[componentType]
	started := f.started
	f.mu.Unlock()
	if started != nil {
		started <- componentType
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d, ok := f.details[componentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", component.ErrNotFound, componentType)
	}
	c := *d
	return &c, nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newTestCanvas(t *testing.T, cat component.Catalog) *Canvas {
	t.Helper()
	c := NewCanvas(cat, "aws", WithClock(fixedClock(1718000000000)))
	require.NoError(t, c.LoadCatalog(context.Background()))
	return c
}

func TestDrop(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())

	n, ok := c.Drop("s3_bucket", "S3 Bucket", diagram.Position{X: 100, Y: 100})
	require.True(t, ok)

	assert.Regexp(t, regexp.MustCompile(`^s3_bucket-\d+$`), n.ID)
	assert.Equal(t, "s3_bucket", n.ComponentType())
	assert.Equal(t, diagram.NodeTypeCustom, n.Type)
	assert.Equal(t, diagram.Position{X: 100, Y: 100}, n.Position)
	assert.Equal(t, "S3 Bucket", n.Data[diagram.FieldLabel])
	assert.Equal(t, "/api/atc/aws/icons/s3.svg", n.Data[diagram.FieldIconPath])

	d := c.Diagram()
	require.Len(t, d.Nodes, 1)
	assert.Equal(t, n, d.Nodes[0])
}

func TestDrop_UniqueIDsWithinSameMillisecond(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())

	a, ok := c.Drop("vpc", "VPC", diagram.Position{})
	require.True(t, ok)
	b, ok := c.Drop("vpc", "VPC", diagram.Position{})
	require.True(t, ok)

	assert.Equal(t, "vpc-1718000000000", a.ID)
	assert.Equal(t, "vpc-1718000000001", b.ID)
}

func TestDrop_UnknownTypeIsNoop(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())

	_, ok := c.Drop("lambda_function", "Lambda", diagram.Position{})
	assert.False(t, ok)
	assert.Empty(t, c.Diagram().Nodes)
}

func TestLoadCatalogFailure_DropDegrades(t *testing.T) {
	cat := newFakeCatalog()
	cat.listErr = errors.New("catalog down")
	c := NewCanvas(cat, "aws")

	require.Error(t, c.LoadCatalog(context.Background()))
	assert.Empty(t, c.Components())
	_, ok := c.Drop("vpc", "VPC", diagram.Position{})
	assert.False(t, ok)
}

func TestConnect_AcceptsMultigraph(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	a, _ := c.Drop("vpc", "VPC", diagram.Position{})
	b, _ := c.Drop("s3_bucket", "S3", diagram.Position{})

	e1 := c.Connect(Connection{Source: a.ID, Target: b.ID})
	e2 := c.Connect(Connection{Source: a.ID, Target: b.ID})
	e3 := c.Connect(Connection{Source: b.ID, Target: a.ID})
	e4 := c.Connect(Connection{Source: a.ID, Target: a.ID, SourceHandle: "s", TargetHandle: "t"})

	assert.Equal(t, fmt.Sprintf("reactflow__edge-%s-%s", a.ID, b.ID), e1.ID)
	assert.Equal(t, e1.ID+"#2", e2.ID)
	assert.NotEqual(t, e1.ID, e3.ID)
	assert.Equal(t, fmt.Sprintf("reactflow__edge-%ss-%st", a.ID, a.ID), e4.ID)
	assert.Len(t, c.Diagram().Edges, 4)
}

func TestMoveNode(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})

	require.NoError(t, c.MoveNode(n.ID, diagram.Position{X: 5, Y: 7}))
	assert.Equal(t, diagram.Position{X: 5, Y: 7}, c.Diagram().Nodes[0].Position)
	assert.ErrorIs(t, c.MoveNode("vpc-0", diagram.Position{}), ErrNodeNotFound)
}

func TestDiagram_ReturnsCopy(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	c.Drop("vpc", "VPC", diagram.Position{})

	d := c.Diagram()
	d.Nodes[0].Data[diagram.FieldLabel] = "changed"
	assert.Equal(t, "VPC", c.Diagram().Nodes[0].Data[diagram.FieldLabel])
}

func TestSelect_MergesSchema(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})

	sel, err := c.Select(context.Background(), n.ID)
	require.NoError(t, err)
	require.True(t, sel.HasSchema())
	assert.Equal(t, n.ID, sel.Node.ID)
	assert.Equal(t, "vpc", sel.Detail.Type)

	got, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, sel, got)
}

func TestSelect_SchemaFailureFallsBackToBareNode(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, ok := c.Drop("broken", "Broken", diagram.Position{})
	require.True(t, ok)

	sel, err := c.Select(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, sel.HasSchema())
	assert.Equal(t, n.ID, sel.Node.ID)
	assert.Nil(t, c.Inspector())
}

func TestSelect_UnknownNode(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	_, err := c.Select(context.Background(), "vpc-1")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, ok := c.Selected()
	assert.False(t, ok)
}

func TestSelect_StaleResponseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	cat := newFakeCatalog()
	gate := make(chan struct{})
	cat.gates["s3_bucket"] = gate
	cat.started = make(chan string, 4)
	c := newTestCanvas(t, cat)

	a, _ := c.Drop("s3_bucket", "S3", diagram.Position{})
	b, _ := c.Drop("vpc", "VPC", diagram.Position{})

	type outcome struct {
		sel *Selection
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		sel, err := c.Select(context.Background(), a.ID)
		done <- outcome{sel, err}
	}()
	require.Equal(t, "s3_bucket", <-cat.started)

	// A is selected without a schema while its lookup is in flight.
	pending, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, a.ID, pending.Node.ID)
	assert.False(t, pending.HasSchema())

	selB, err := c.Select(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "vpc", <-cat.started)
	assert.Equal(t, "vpc", selB.Detail.Type)

	close(gate)
	res := <-done
	assert.ErrorIs(t, res.err, ErrSelectionSuperseded)
	assert.Nil(t, res.sel)

	final, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, b.ID, final.Node.ID)
	assert.Equal(t, "vpc", final.Detail.Type)
}

func TestSelect_DeselectDropsPendingResponse(t *testing.T) {
	defer goleak.VerifyNone(t)

	cat := newFakeCatalog()
	gate := make(chan struct{})
	cat.gates["vpc"] = gate
	cat.started = make(chan string, 1)
	c := newTestCanvas(t, cat)
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})

	errc := make(chan error, 1)
	go func() {
		_, err := c.Select(context.Background(), n.ID)
		errc <- err
	}()
	<-cat.started
	c.Deselect()
	close(gate)

	assert.ErrorIs(t, <-errc, ErrSelectionSuperseded)
	_, ok := c.Selected()
	assert.False(t, ok)
}

func TestSetProperty_UpdatesBothCopies(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})
	_, err := c.Select(context.Background(), n.ID)
	require.NoError(t, err)

	sel, err := c.SetProperty("cidr_block", "10.1.0.0/16")
	require.NoError(t, err)
	assert.Equal(t, "10.1.0.0/16", sel.Node.Data["cidr_block"])

	got, _ := c.Selected()
	graphNode := c.Diagram().Nodes[0]
	assert.Equal(t, got.Node.Data["cidr_block"], graphNode.Data["cidr_block"])
	assert.Equal(t, "10.1.0.0/16", graphNode.Data["cidr_block"])

	_, err = c.SetProperty("max_azs", 3)
	require.NoError(t, err)
	got, _ = c.Selected()
	assert.Equal(t, float64(3), got.Node.Data["max_azs"])
	assert.Equal(t, float64(3), c.Diagram().Nodes[0].Data["max_azs"])
}

func TestSetProperty_CopiesDoNotAlias(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})
	_, _ = c.Select(context.Background(), n.ID)

	tags := map[string]any{"env": "dev"}
	_, err := c.SetProperty("tags", tags)
	require.NoError(t, err)
	tags["env"] = "prod"

	got, _ := c.Selected()
	assert.Equal(t, "dev", got.Node.Data["tags"].(map[string]any)["env"])
	assert.Equal(t, "dev", c.Diagram().Nodes[0].Data["tags"].(map[string]any)["env"])
}

func TestSetProperty_Errors(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})

	_, err := c.SetProperty("cidr_block", "x")
	assert.ErrorIs(t, err, ErrNoSelection)

	_, _ = c.Select(context.Background(), n.ID)
	_, err = c.SetProperty(diagram.FieldIconPath, "/elsewhere.svg")
	assert.ErrorIs(t, err, ErrReadOnlyProperty)
}

func TestReplace_ClearsSelection(t *testing.T) {
	c := newTestCanvas(t, newFakeCatalog())
	n, _ := c.Drop("vpc", "VPC", diagram.Position{})
	_, _ = c.Select(context.Background(), n.ID)

	c.Replace(diagram.Diagram{Nodes: []diagram.Node{{ID: "s3_bucket-1", Type: diagram.NodeTypeCustom, Data: map[string]any{}}}})

	_, ok := c.Selected()
	assert.False(t, ok)
	d := c.Diagram()
	require.Len(t, d.Nodes, 1)
	assert.Equal(t, "s3_bucket-1", d.Nodes[0].ID)
	assert.Empty(t, d.Edges)
}
