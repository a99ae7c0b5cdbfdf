package main

import (
	"fmt"
	"os"

	"github.com/json-to-terraform/atc/internal/commands"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	commands.Version = Version
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
