package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/json-to-terraform/atc/internal/api"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the diagram document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(api.DiagramSchema())
	},
}
