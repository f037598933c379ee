package patrol

import (
	"fmt"
	"strings"
)

// ExplorationTaskName is the reserved name of the synthetic exploration task
// prepended to the task list when auto patrol is enabled. The executor uses
// it to locate exploration output when building the exploration summary.
const ExplorationTaskName = "Auto-explore app"

// BuildExplorationTask synthesizes the exploration task from the auto patrol
// settings. The heavy lifting is a natural-language briefing: the agent gets
// the limits, the safety constraints, and the per-page test actions, and
// reports its findings in a parseable form.
func BuildExplorationTask(ap AutoPatrol) TaskSpec {
	strategyText := map[ExploreStrategy]string{
		StrategyBreadthFirst: "breadth-first (visit every top-level page before descending into sub-pages)",
		StrategyDepthFirst:   "depth-first (fully explore one branch before moving to the next)",
	}

	var tests strings.Builder
	for _, action := range ap.TestActions {
		fmt.Fprintf(&tests, "   - %s\n", action)
	}

	instruction := fmt.Sprintf(`Autonomously explore the %s app:

1. Goal: discover the app's main pages and feature entry points (at most %d pages).
2. Depth: descend at most %d levels into sub-pages.
3. Safety: never perform any of the following actions: %s.
4. On every discovered page, run these checks:
%s5. Strategy: %s.
6. Finish within %.0f seconds.

Report progress after every page in the form "Discovered page: <name>" followed by
"Test passed" or "Test failed".`,
		ap.TargetApp,
		ap.MaxPages,
		ap.MaxDepth,
		strings.Join(ap.ForbiddenActions, ", "),
		tests.String(),
		strategyText[ap.Strategy],
		ap.MaxTime.Seconds(),
	)

	criteria := `Exploration is complete when:
- The app's main top-level pages (bottom navigation, side bar, primary entries) were discovered
- Every discovered page had its checks executed
- No forbidden action was performed
- The page and time limits were respected

Summarize the result: number and names of discovered pages, per-page check
results, and any problems found.`

	return TaskSpec{
		Name:            ExplorationTaskName,
		Description:     fmt.Sprintf("Autonomously explore %s and test core functionality on every page", ap.TargetApp),
		Instruction:     instruction,
		SuccessCriteria: criteria,
		Enabled:         true,
		Timeout:         ap.MaxTime,
	}
}

// ParseDiscoveredPages extracts discovered pages from the exploration task's
// agent output. It is a line-oriented keyword scanner, not a grammar: the
// exploration briefing asks the agent to report in this shape, and anything
// that does not match is ignored.
func ParseDiscoveredPages(agentMessage string) []DiscoveredPage {
	var pages []DiscoveredPage
	var current *DiscoveredPage

	flush := func() {
		if current != nil {
			pages = append(pages, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(agentMessage, "\n") {
		line = strings.TrimSpace(line)

		if name, ok := pageMarker(line); ok {
			flush()
			current = &DiscoveredPage{Name: name}
			continue
		}

		if current == nil {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "test passed") || strings.Contains(lower, "test succeeded"):
			current.Tested = true
			current.Result = "passed"
			flush()
		case strings.Contains(lower, "test failed") || strings.Contains(lower, "could not test"):
			current.Tested = true
			current.Result = "failed"
			flush()
		}
	}
	flush()

	return pages
}

func pageMarker(line string) (string, bool) {
	for _, marker := range []string{"Discovered page:", "Entered page:", "Opened page:"} {
		if idx := strings.Index(line, marker); idx >= 0 {
			name := strings.TrimSpace(line[idx+len(marker):])
			if name != "" {
				return name, true
			}
		}
	}
	return "", false
}
