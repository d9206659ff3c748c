// Shouldi answers "Should I...?" questions with a probability, a short
// reason and a spoken explanation, using a local vision-language model
// augmented with web search.
//
// Usage:
//
//	shouldi ask "Should I buy this stock?"
//	shouldi ask --image banana.jpg "Is this ripe?"
//	shouldi serve --config /path/to/shouldi.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "shouldi",
		Short: "Yes/no recommendations from a vision-language model",
		Long: `shouldi asks a language model whether you should do something, answers with
a probability and a reason, and reads the reason aloud.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/shouldi.yaml)")

	rootCmd.AddCommand(
		newAskCmd(&configFile),
		newServeCmd(&configFile),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shouldi %s\n", version)
		},
	}
}
