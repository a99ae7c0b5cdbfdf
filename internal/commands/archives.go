package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Saved architectures",
}

var listArchivesCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved architectures of the configured backend",
	RunE:  runListArchives,
}

var showArchiveCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved architecture as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowArchive,
}

func init() {
	archivesCmd.PersistentFlags().String("provider", "", "cloud provider (default catalog.provider)")
	archivesCmd.AddCommand(listArchivesCmd)
	archivesCmd.AddCommand(showArchiveCmd)
}

func archivesProvider(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		return p
	}
	return cfg.Catalog.Provider
}

func runListArchives(cmd *cobra.Command, _ []string) error {
	names, err := backendFor(archivesProvider(cmd)).List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list architectures: %w", err)
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runShowArchive(cmd *cobra.Command, args []string) error {
	b, err := backendFor(archivesProvider(cmd)).Load(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load architecture: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(b.Merged())
}
