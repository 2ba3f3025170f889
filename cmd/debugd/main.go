// Debugd is an autonomous debugging daemon: a team of specialized
// roles collaborates to resolve a reported defect, consulting and
// updating a long-term solution memory backed by a vector store.
//
// Usage:
//
//	# Solve a bug from the command line
//	debugd solve -b "TypeError: unsupported operand type(s)"
//
//	# Solve from a file, write the result to disk
//	debugd solve -b report.txt -f -o result.json
//
//	# Start the HTTP server
//	debugd server
//
// Configuration is loaded from an optional YAML file plus environment
// variables. See internal/config for details.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "debugd",
	Short:         "Autonomous AI-powered debugging system",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
