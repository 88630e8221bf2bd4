package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hitscript",
	Short: "Run Postman-compatible test scripts against captured responses.",
	Long: `hitscript executes pre-request and test scripts in a sandboxed
JavaScript runtime, resolves {{variable}} placeholders across session,
global, and environment scopes, and extracts values out of HTTP
responses back into those scopes.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
