// Package main implements the flint CLI: a local context-assembly engine
// for writing assistants. It runs entirely on the local machine with no
// network access and no machine-learned model.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev" // set via ldflags
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flint",
	Short: "Local context assembly for writing assistants",
	Long: `flint assembles a bounded, relevant slice of a document around a cursor
position, using a local TF-IDF vector model. It can run one-shot on a file
(assemble) or serve an HTTP API with a persistent semantic memory (serve).`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(assembleCmd)
}
