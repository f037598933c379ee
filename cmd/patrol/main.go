package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Exit codes: 0 all tasks passed, 1 failure of any kind, 130 interrupted.
const (
	exitOK          = 0
	exitFailed      = 1
	exitInterrupted = 130
)

var (
	flagConfig       string
	flagListExamples bool
	flagExamplesDir  string
	flagVerbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "patrol",
		Short: "Config-driven phone patrol runner",
		Long: "Runs YAML-defined patrol tasks against a phone agent and writes\n" +
			"Markdown and JSON reports of the outcome.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagListExamples {
				return listExamples()
			}
			if flagConfig == "" {
				return errors.New("--config is required (or use --list-examples)")
			}
			return runPatrol(cmd.Context(), flagConfig)
		},
	}

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to a patrol YAML config")
	rootCmd.Flags().BoolVar(&flagListExamples, "list-examples", false, "List available example configs and exit")
	rootCmd.Flags().StringVar(&flagExamplesDir, "examples-dir", "examples", "Directory scanned by --list-examples")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("patrol %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.msg != "" {
				fmt.Fprintln(os.Stderr, exitErr.msg)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailed)
	}
}

// exitError carries a specific process exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
