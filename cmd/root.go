package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "selfreport",
	Short: "Error store endpoint that reports its own failures",
	Long: `selfreport runs an event store endpoint and captures the service's own
errors into it, optionally forwarding them to an upstream reporting service.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file (empty for environment only)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
