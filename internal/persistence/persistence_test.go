package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/json-to-terraform/atc/internal/archive"
	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/editor"
	"github.com/json-to-terraform/atc/internal/result"
)

type stubCatalog struct {
	defs    []component.Definition
	details map[string]*component.Detail
	listErr error
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		defs: []component.Definition{
			{Name: "VPC", Type: "vpc", IconPath: "/api/atc/aws/icons/vpc.svg"},
			{Name: "EC2", Type: "ec2", IconPath: "/api/atc/aws/icons/ec2.svg"},
		},
		details: map[string]*component.Detail{
			"vpc": {Name: "VPC", Type: "vpc", Properties: []component.Property{
				{Name: "cidr_block", Type: component.PropertyString},
				{Name: "max_azs", Type: component.PropertyNumber},
				{Name: "tags", Type: component.PropertyString},
			}},
			"ec2": {Name: "EC2", Type: "ec2", Properties: []component.Property{
				{Name: "instance_type", Type: component.PropertyEnum, Options: []string{"t3.micro", "t3.small"}},
				{Name: "region", Type: component.PropertyString},
			}},
		},
	}
}

func (s *stubCatalog) List(ctx context.Context, _ string) ([]component.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.defs, nil
}

func (s *stubCatalog) Get(ctx context.Context, _ string, t string) (*component.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, ok := s.details[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", component.ErrNotFound, t)
	}
	return d, nil
}

// populated builds a canvas holding vpc -> ec2 with a few edited properties.
func populated(t *testing.T, cat component.Catalog) *editor.Canvas {
	t.Helper()
	ctx := context.Background()
	c := editor.NewCanvas(cat, "aws", editor.WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))
	require.NoError(t, c.LoadCatalog(ctx))

	vpc, ok := c.Drop("vpc", "Main VPC", diagram.Position{X: 10, Y: 20.5})
	require.True(t, ok)
	ec2, ok := c.Drop("ec2", "Web", diagram.Position{X: 200, Y: 40})
	require.True(t, ok)
	c.Connect(editor.Connection{Source: vpc.ID, Target: ec2.ID})

	_, err := c.Select(ctx, vpc.ID)
	require.NoError(t, err)
	_, err = c.SetProperty("cidr_block", "10.0.0.0/16")
	require.NoError(t, err)
	_, err = c.SetProperty("max_azs", 2)
	require.NoError(t, err)
	_, err = c.SetProperty("tags", map[string]any{"env": "dev", "team": "platform"})
	require.NoError(t, err)

	_, err = c.Select(ctx, ec2.ID)
	require.NoError(t, err)
	_, err = c.SetProperty("instance_type", "t3.small")
	require.NoError(t, err)
	c.Deselect()
	return c
}

func emptyCanvas(t *testing.T, cat component.Catalog) *editor.Canvas {
	t.Helper()
	c := editor.NewCanvas(cat, "aws")
	require.NoError(t, c.LoadCatalog(context.Background()))
	return c
}

func TestDirectory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := newStubCatalog()
	src := populated(t, cat)
	adapter := NewAdapter(NewDirectory(t.TempDir()), nil)

	n := adapter.Save(ctx, src, "demo")
	require.Equal(t, result.LevelSuccess, n.Level, n.Message)

	dst := emptyCanvas(t, cat)
	n = adapter.Load(ctx, dst, "demo")
	require.Equal(t, result.LevelSuccess, n.Level, n.Message)

	if diff := cmp.Diff(src.Diagram(), dst.Diagram()); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	names, list := adapter.List(ctx)
	assert.True(t, list.OK())
	assert.Equal(t, []string{"demo"}, names)
}

func TestDirectory_SaveLayout(t *testing.T) {
	root := t.TempDir()
	src := populated(t, newStubCatalog())
	require.NoError(t, NewDirectory(root).Save(context.Background(), "demo", src.Diagram()))

	raw, err := os.ReadFile(filepath.Join(root, "demo", DiagramFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"nodes\": ["), "diagram.json is 2-space indented")

	var d diagram.Diagram
	require.NoError(t, json.Unmarshal(raw, &d))
	require.Len(t, d.Nodes, 2)
	assert.Equal(t, "/api/atc/aws/icons/vpc.svg", d.Nodes[0].Data[diagram.FieldIconPath])

	doc, err := os.ReadFile(filepath.Join(root, "demo", d.Nodes[0].ID+".yaml"))
	require.NoError(t, err)
	var props map[string]any
	require.NoError(t, yaml.Unmarshal(doc, &props))
	assert.NotContains(t, props, diagram.FieldIconPath)
	assert.Equal(t, "Main VPC", props[diagram.FieldLabel])
	assert.Equal(t, "10.0.0.0/16", props["cidr_block"])
}

func TestDirectory_InvalidName(t *testing.T) {
	b := NewDirectory(t.TempDir())
	for _, name := range []string{"", "..", "a/b"} {
		assert.ErrorIs(t, b.Save(context.Background(), name, diagram.Diagram{}), ErrInvalidName)
	}
	_, err := b.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_UnknownPropertyLeavesCanvasIntact(t *testing.T) {
	ctx := context.Background()
	cat := newStubCatalog()
	root := t.TempDir()
	adapter := NewAdapter(NewDirectory(root), nil)

	src := populated(t, cat)
	require.True(t, adapter.Save(ctx, src, "demo").OK())

	ec2 := src.Diagram().Nodes[1]
	path := filepath.Join(root, "demo", ec2.ID+".yaml")
	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(doc, []byte("regionX: us-east-1\n")...), 0o644))

	dst := emptyCanvas(t, cat)
	kept, ok := dst.Drop("vpc", "Existing", diagram.Position{})
	require.True(t, ok)
	before := dst.Diagram()

	n := adapter.Load(ctx, dst, "demo")
	assert.Equal(t, result.LevelError, n.Level)
	assert.Contains(t, n.Message, "regionX")
	assert.Contains(t, n.Message, ec2.ID)

	after := dst.Diagram()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("canvas changed on failed import:\n%s", diff)
	}
	assert.Equal(t, kept.ID, after.Nodes[0].ID)
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	cat := newStubCatalog()
	root := t.TempDir()
	dir := NewDirectory(root)
	src := populated(t, cat)
	require.NoError(t, dir.Save(ctx, "demo", src.Diagram()))

	t.Run("missing property document", func(t *testing.T) {
		b, err := dir.Load(ctx, "demo")
		require.NoError(t, err)
		id := b.Diagram.Nodes[0].ID
		delete(b.Properties, id)

		_, err = Import(ctx, cat, "aws", b)
		var missing *MissingDocumentError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, id, missing.NodeID)
		assert.Contains(t, err.Error(), id+".yaml")
	})

	t.Run("unknown property", func(t *testing.T) {
		b, err := dir.Load(ctx, "demo")
		require.NoError(t, err)
		id := b.Diagram.Nodes[0].ID
		b.Properties[id]["regionX"] = "eu"

		_, err = Import(ctx, cat, "aws", b)
		var unknown *UnknownPropertyError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "regionX", unknown.Property)
		assert.Equal(t, id, unknown.NodeID)
	})

	t.Run("missing schema", func(t *testing.T) {
		b := &Bundle{Diagram: diagram.Diagram{Nodes: []diagram.Node{
			{ID: "lambda-1", Type: diagram.NodeTypeCustom, Data: map[string]any{"label": "fn"}},
		}}}
		_, err := Import(ctx, cat, "aws", b)
		var missing *MissingSchemaError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "lambda", missing.ComponentType)
		assert.ErrorIs(t, err, component.ErrNotFound)
	})

	t.Run("label is always allowed", func(t *testing.T) {
		b := &Bundle{
			Diagram:    diagram.Diagram{Nodes: []diagram.Node{{ID: "vpc-1", Type: diagram.NodeTypeCustom}}},
			Properties: map[string]map[string]any{"vpc-1": {"label": "x", "cidr_block": "10.1.0.0/16"}},
		}
		d, err := Import(ctx, cat, "aws", b)
		require.NoError(t, err)
		assert.Equal(t, "/api/atc/aws/icons/vpc.svg", d.Nodes[0].Data[diagram.FieldIconPath])
		assert.NotNil(t, d.Edges)
	})
}

func TestImport_IconPathFromCurrentCatalog(t *testing.T) {
	cat := newStubCatalog()
	b := &Bundle{Diagram: diagram.Diagram{Nodes: []diagram.Node{
		{ID: "vpc-1", Type: diagram.NodeTypeCustom, Data: map[string]any{"label": "v", "icon_path": "/stale.png"}},
	}}}

	d, err := Import(context.Background(), cat, "aws", b)
	require.NoError(t, err)
	assert.Equal(t, "/api/atc/aws/icons/vpc.svg", d.Nodes[0].Data[diagram.FieldIconPath])

	cat.defs = cat.defs[1:]
	d, err = Import(context.Background(), cat, "aws", b)
	require.NoError(t, err)
	assert.Equal(t, "", d.Nodes[0].Data[diagram.FieldIconPath])
}

func TestLoad_ComponentListUnavailable(t *testing.T) {
	ctx := context.Background()
	cat := newStubCatalog()
	src := populated(t, cat)
	adapter := NewAdapter(NewDirectory(t.TempDir()), nil)
	require.True(t, adapter.Save(ctx, src, "demo").OK())

	cat.listErr = errors.New("catalog list unavailable")
	dst := editor.NewCanvas(cat, "aws")
	n := adapter.Load(ctx, dst, "demo")
	require.Equal(t, result.LevelSuccess, n.Level, n.Message)

	got := dst.Diagram()
	want := src.Diagram()
	require.Len(t, got.Nodes, len(want.Nodes))
	for i := range got.Nodes {
		assert.Equal(t, "", got.Nodes[i].Data[diagram.FieldIconPath])
		delete(got.Nodes[i].Data, diagram.FieldIconPath)
		delete(want.Nodes[i].Data, diagram.FieldIconPath)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("load mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestAdapter_Canceled(t *testing.T) {
	cat := newStubCatalog()
	root := t.TempDir()
	adapter := NewAdapter(NewDirectory(root), nil)
	src := populated(t, cat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := adapter.Save(ctx, src, "demo")
	assert.Equal(t, result.LevelCanceled, n.Level)
	assert.False(t, n.OK())

	require.True(t, adapter.Save(context.Background(), src, "demo").OK())
	dst := emptyCanvas(t, cat)
	n = adapter.Load(ctx, dst, "demo")
	assert.Equal(t, result.LevelCanceled, n.Level)
	assert.Empty(t, dst.Diagram().Nodes)
}

// archiveServer mimics the remote archive service over an archive.Store.
func archiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := archive.NewStore(t.TempDir())
	mux := http.NewServeMux()
	writeErr := func(w http.ResponseWriter, code int, err error) {
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
	}
	mux.HandleFunc("GET /api/atc/{provider}/architectures", func(w http.ResponseWriter, r *http.Request) {
		names, err := store.List(r.PathValue("provider"))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"architectures": names})
	})
	mux.HandleFunc("POST /api/atc/{provider}/architectures/{name}", func(w http.ResponseWriter, r *http.Request) {
		var d diagram.Diagram
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if err := store.Save(r.PathValue("provider"), r.PathValue("name"), d); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, archive.ErrInvalidName) {
				code = http.StatusBadRequest
			}
			writeErr(w, code, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "saved"})
	})
	mux.HandleFunc("GET /api/atc/{provider}/architectures/{name}", func(w http.ResponseWriter, r *http.Request) {
		d, err := store.Load(r.PathValue("provider"), r.PathValue("name"))
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		_ = json.NewEncoder(w).Encode(d)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemote_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := newStubCatalog()
	srv := archiveServer(t)
	adapter := NewAdapter(NewRemote(srv.URL+"/api/atc", "aws", srv.Client()), nil)

	names, n := adapter.List(ctx)
	require.True(t, n.OK(), n.Message)
	assert.Empty(t, names)

	src := populated(t, cat)
	require.True(t, adapter.Save(ctx, src, "prod1").OK())

	names, _ = adapter.List(ctx)
	assert.Equal(t, []string{"prod1"}, names)

	dst := emptyCanvas(t, cat)
	n = adapter.Load(ctx, dst, "prod1")
	require.True(t, n.OK(), n.Message)
	if diff := cmp.Diff(src.Diagram(), dst.Diagram()); diff != "" {
		t.Errorf("remote round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestRemote_Errors(t *testing.T) {
	ctx := context.Background()
	srv := archiveServer(t)
	r := NewRemote(srv.URL+"/api/atc", "aws", nil)

	err := r.Save(ctx, "not-alnum", diagram.Diagram{})
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Contains(t, err.Error(), "alphanumeric")

	_, err = r.Load(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBundle_Merged(t *testing.T) {
	b := &Bundle{
		Diagram: diagram.Diagram{
			Nodes: []diagram.Node{
				{ID: "vpc-1", Data: map[string]any{"label": "Old", "icon_path": "/icons/vpc.svg", "cidr_block": "10.1.0.0/16"}},
				{ID: "ec2-2", Data: map[string]any{"label": "Web"}},
			},
		},
		Properties: map[string]map[string]any{
			"vpc-1": {"label": "Main", "cidr_block": "10.0.0.0/16", "max_azs": 2},
		},
	}

	d := b.Merged()
	assert.Equal(t, map[string]any{
		"label": "Main", "icon_path": "/icons/vpc.svg", "cidr_block": "10.0.0.0/16", "max_azs": float64(2),
	}, d.Nodes[0].Data)
	assert.Equal(t, map[string]any{"label": "Web"}, d.Nodes[1].Data)
	assert.Equal(t, "Old", b.Diagram.Nodes[0].Label())
}
