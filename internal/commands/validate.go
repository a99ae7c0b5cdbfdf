package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/json-to-terraform/atc/internal/codegen"
	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/persistence"
)

var validateCmd = &cobra.Command{
	Use:   "validate <diagram.json|bundle-dir|->",
	Short: "Check a diagram without writing Terraform",
	Long: `Validate checks node properties against the component catalog (as a
load into the editor would) and runs the Terraform generation checks.
Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("provider", "", "catalog provider to check against (default catalog.provider)")
	validateCmd.Flags().Bool("skip-catalog", false, "skip the component schema check")
	validateCmd.Flags().Bool("json", false, "print the result as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = cfg.Catalog.Provider
	}

	var d diagram.Diagram
	if skip, _ := cmd.Flags().GetBool("skip-catalog"); skip {
		var err error
		if d, err = readDiagram(ctx, args[0], cmd.InOrStdin()); err != nil {
			return err
		}
	} else {
		b, err := readValidatable(ctx, args[0], cmd)
		if err != nil {
			return err
		}
		catalog := sessionCatalog(component.NewStore(cfg.Catalog.Dir, log))
		if d, err = persistence.Import(ctx, catalog, provider, b); err != nil {
			return fmt.Errorf("catalog check: %w", err)
		}
	}

	opts := codegen.DefaultOptions()
	opts.Provider = provider
	opts.EmitTfvars = false
	res, err := codegen.New(opts, log).Generate(ctx, &d)
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	if err := report(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, jsonOut); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("diagram has %d error(s)", len(res.Errors))
	}
	if !jsonOut {
		fmt.Fprintf(cmd.OutOrStdout(), "diagram is valid (%d nodes, %d edges)\n", len(d.Nodes), len(d.Edges))
	}
	return nil
}

// readValidatable returns a bundle: a directory keeps its documents, a
// JSON document carries its properties in the node data.
func readValidatable(ctx context.Context, path string, cmd *cobra.Command) (*persistence.Bundle, error) {
	if path != "-" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return readBundle(ctx, path)
		}
	}
	d, err := readDiagram(ctx, path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return &persistence.Bundle{Diagram: d}, nil
}
