package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hairizuan-noorazman/phone-patrol/config"
)

// listExamples prints the patrol configs found in the examples directory.
func listExamples() error {
	env, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	summaries, err := config.ListConfigs(flagExamplesDir, env)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Printf("No patrol configs found in %s\n", flagExamplesDir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join([]string{"FILE", "NAME", "TASKS", "DESCRIPTION"}, "\t"))
	for _, s := range summaries {
		if s.Err != nil {
			fmt.Fprintf(w, "%s\t(invalid: %v)\t\t\n", s.Path, s.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", s.Path, s.Name, s.EnabledTasks, s.TotalTasks, s.Description)
	}
	return w.Flush()
}
