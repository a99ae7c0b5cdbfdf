// Package commands implements the atc command line.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/config"
	"github.com/json-to-terraform/atc/internal/logger"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log *zap.Logger
)

// Version is set by main from build flags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "atc",
	Short: "Architecture diagram editor and Terraform generator",
	Long: `ATC serves the architecture diagram editor: the component catalog,
editing sessions, saved architectures and the global dashboard filters.

Diagrams drawn in the editor can be turned into Terraform for AWS or GCP
from the API or with the generate command.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = Version
	defer func() {
		if log != nil {
			_ = log.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./atc.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(archivesCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	log = logger.New(cfg.Logging)
}
