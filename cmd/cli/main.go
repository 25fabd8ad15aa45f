package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"regnet/internal"
	"regnet/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "regnet-cli",
		Short:         "Infer TF-gene networks and the transition between two conditions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	logger := func() *internal.Logger {
		if verbose {
			return internal.NewLogger(internal.LogLevelDebug)
		}
		return internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	}

	rootCmd.AddCommand(
		newInferCmd(cfg.Analysis, logger),
		newTransitionCmd(cfg.Analysis, logger),
		newAnalyzeCmd(cfg, logger),
	)
	return rootCmd
}
