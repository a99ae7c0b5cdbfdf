// Package codegen turns an architecture diagram into Terraform files.
//
// Nodes are grouped into dependency tiers along their edges; each tier's
// handlers run concurrently and a tier only starts once the previous one
// has published its resource addresses, so a handler can reference any
// node connected into it.
package codegen

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/json-to-terraform/atc/internal/dependency"
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
	"github.com/json-to-terraform/atc/internal/terraform"
)

const maxParallelCap = 32

// Generator renders diagrams with the handlers of a registry.
type Generator struct {
	opts Options
	reg  *registry.Registry
	log  *zap.Logger
}

// New returns a generator over registry.Default.
func New(opts Options, log *zap.Logger) *Generator {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = runtime.NumCPU()
	}
	if opts.MaxParallel > maxParallelCap {
		opts.MaxParallel = maxParallelCap
	}
	if opts.Provider == "" {
		opts.Provider = registry.ProviderAWS
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{opts: opts, reg: registry.Default, log: log.Named("codegen")}
}

// WithRegistry returns a copy of g that resolves handlers from reg.
func (g *Generator) WithRegistry(reg *registry.Registry) *Generator {
	c := *g
	c.reg = reg
	return &c
}

type nodeResult struct {
	hcl   []byte
	errs  []result.Error
	warns []result.Warning
}

// Generate validates d, resolves its dependency tiers and renders every
// node. Problems with the diagram are reported in the result; the error
// return is reserved for cancellation.
func (g *Generator) Generate(ctx context.Context, d *diagram.Diagram) (*result.GenerateResult, error) {
	out := &result.GenerateResult{Success: true}

	for _, e := range diagram.Validate(d) {
		out.Errors = append(out.Errors, result.Error{
			Type: e.Type, Severity: e.Severity, NodeID: e.NodeID,
			Message: e.Message, Suggestion: e.Suggestion,
		})
	}
	if len(out.Errors) > 0 {
		out.Success = false
		return out, nil
	}

	_, tiers, err := dependency.Resolve(d)
	if err != nil {
		out.Success = false
		out.Errors = append(out.Errors, result.Error{
			Type: "dependency_error", Severity: "error",
			Message: err.Error(), Suggestion: "Remove circular connections before generating",
		})
		return out, nil
	}

	handlers := make(map[string]registry.ResourceHandler, len(d.Nodes))
	clouds := make(map[string]bool)
	for i := range d.Nodes {
		n := &d.Nodes[i]
		h, ok := g.reg.Get(n.ComponentType())
		if !ok {
			out.Success = false
			out.Errors = append(out.Errors, result.Error{
				Type: "validation_error", Severity: "error", NodeID: n.ID,
				Message:    "unsupported component type: " + n.ComponentType(),
				Suggestion: "Use one of: " + strings.Join(g.reg.SupportedTypes(""), ", "),
			})
			continue
		}
		handlers[n.ID] = h
		clouds[h.Provider()] = true
	}
	if !out.Success {
		return out, nil
	}

	refs := make(registry.RefMap, len(d.Nodes))
	var blocks []struct {
		addr string
		hcl  []byte
	}
	for _, tier := range tiers {
		results := make(map[string]nodeResult, len(tier))
		var mu sync.Mutex

		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(g.opts.MaxParallel)
		for _, id := range tier {
			n := d.NodeByID(id)
			h := handlers[id]
			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				res := runHandler(h, n, d, refs)
				mu.Lock()
				results[id] = res
				mu.Unlock()
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		// Publish in tier order so main.tf follows dependency order.
		for _, id := range tier {
			res := results[id]
			out.Errors = append(out.Errors, res.errs...)
			out.Warnings = append(out.Warnings, res.warns...)
			if len(res.errs) > 0 {
				out.Success = false
				continue
			}
			addr := handlers[id].TerraformType() + "." + terraform.SanitizeName(id)
			refs[id] = addr
			blocks = append(blocks, struct {
				addr string
				hcl  []byte
			}{addr, res.hcl})
		}
	}
	if !out.Success {
		g.log.Debug("generation failed", zap.Int("errors", len(out.Errors)))
		return out, nil
	}

	b := terraform.NewBuilder(g.cloudList(clouds), g.opts.EmitTfvars)
	b.SetVariables(g.variables())
	for _, blk := range blocks {
		b.AddResource(blk.addr, blk.hcl)
	}
	out.TerraformFiles = b.Build()
	g.log.Info("terraform generated",
		zap.Int("nodes", len(d.Nodes)),
		zap.Int("tiers", len(tiers)),
		zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

func runHandler(h registry.ResourceHandler, n *diagram.Node, d *diagram.Diagram, refs registry.RefMap) nodeResult {
	errs, warns := h.Validate(n)
	res := nodeResult{errs: errs, warns: warns}
	if len(errs) > 0 {
		return res
	}
	hcl, err := h.GenerateHCL(n, d, refs)
	if err != nil {
		res.errs = append(res.errs, result.Error{
			Type: "generation_error", Severity: "error", NodeID: n.ID,
			Message: err.Error(),
		})
		return res
	}
	res.hcl = hcl
	return res
}

func (g *Generator) cloudList(used map[string]bool) []string {
	if len(used) == 0 {
		return []string{g.opts.Provider}
	}
	out := make([]string, 0, len(used))
	for c := range used {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (g *Generator) variables() terraform.Variables {
	v := terraform.Variables{GCPProject: g.opts.Project}
	switch g.opts.Provider {
	case registry.ProviderGCP:
		v.GCPRegion = g.opts.Region
	default:
		v.AWSRegion = g.opts.Region
	}
	return v
}
