package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/json-to-terraform/atc/internal/codegen"
	"github.com/json-to-terraform/atc/internal/diagram"
	"github.com/json-to-terraform/atc/internal/persistence"
	"github.com/json-to-terraform/atc/internal/result"
)

var generateCmd = &cobra.Command{
	Use:   "generate <diagram.json|bundle-dir|->",
	Short: "Generate Terraform from a diagram",
	Long: `Generate Terraform files from a diagram JSON document, a saved
directory bundle (diagram.json plus per-node YAML property documents) or
standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("output", "o", "output", "output directory for Terraform files")
	generateCmd.Flags().Bool("no-tfvars", false, "do not generate terraform.tfvars")
	generateCmd.Flags().Int("parallel", 0, "max parallel nodes per tier (0 = codegen.max_parallel)")
	generateCmd.Flags().Bool("json", false, "print the result as JSON")
	generateCmd.Flags().String("provider", "", "cloud provider for an empty diagram (aws, gcp)")
	generateCmd.Flags().String("region", "", "provider region (overrides codegen.region)")
	generateCmd.Flags().String("project", "", "GCP project id (overrides codegen.project)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	d, err := readDiagram(cmd.Context(), args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	opts := generateOptions(cmd)
	res, err := codegen.New(opts, log).Generate(cmd.Context(), &d)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if err := report(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, jsonOut); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("generation failed with %d error(s)", len(res.Errors))
	}

	out, _ := cmd.Flags().GetString("output")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for name, content := range res.TerraformFiles {
		path := filepath.Join(out, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if !jsonOut {
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
		}
	}
	return nil
}

func generateOptions(cmd *cobra.Command) codegen.Options {
	opts := codegen.Options{
		EmitTfvars:  cfg.Codegen.EmitTfvars,
		MaxParallel: cfg.Codegen.MaxParallel,
		Provider:    cfg.Catalog.Provider,
		Region:      cfg.Codegen.Region,
		Project:     cfg.Codegen.Project,
	}
	f := cmd.Flags()
	if noTfvars, _ := f.GetBool("no-tfvars"); noTfvars {
		opts.EmitTfvars = false
	}
	if n, _ := f.GetInt("parallel"); n > 0 {
		opts.MaxParallel = n
	}
	if p, _ := f.GetString("provider"); p != "" {
		opts.Provider = p
	}
	if r, _ := f.GetString("region"); r != "" {
		opts.Region = r
	}
	if p, _ := f.GetString("project"); p != "" {
		opts.Project = p
	}
	return opts
}

// readDiagram reads a diagram from stdin ("-"), a JSON file or a directory
// bundle. Bundle property documents replace the node data.
func readDiagram(ctx context.Context, path string, stdin io.Reader) (diagram.Diagram, error) {
	if path != "-" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			b, err := readBundle(ctx, path)
			if err != nil {
				return diagram.Diagram{}, err
			}
			return b.Merged(), nil
		}
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return diagram.Diagram{}, fmt.Errorf("read input: %w", err)
	}
	var d diagram.Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return diagram.Diagram{}, fmt.Errorf("parse JSON: %w", err)
	}
	return d, nil
}

func readBundle(ctx context.Context, dir string) (*persistence.Bundle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return persistence.NewDirectory(filepath.Dir(abs)).Load(ctx, filepath.Base(abs))
}

func report(stdout, stderr io.Writer, res *result.GenerateResult, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(stderr, "ERROR [%s] %s\n", e.NodeID, e.Message)
		if e.Suggestion != "" {
			fmt.Fprintf(stderr, "  suggestion: %s\n", e.Suggestion)
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "WARN [%s] %s\n", w.NodeID, w.Message)
	}
	return nil
}
