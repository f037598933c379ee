package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// statusLabel maps a task status to its report marker.
func statusLabel(s patrol.TaskStatus) string {
	switch s {
	case patrol.StatusPassed:
		return "✅ Passed"
	case patrol.StatusFailed:
		return "❌ Failed"
	case patrol.StatusTimeout:
		return "⏰ Timeout"
	case patrol.StatusSkipped:
		return "⏭️ Skipped"
	default:
		return string(s)
	}
}

// RenderMarkdown renders one patrol run as a Markdown document.
func RenderMarkdown(result *patrol.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Patrol Report: %s\n\n", result.PatrolName)
	if result.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", result.Description)
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Field | Value |\n")
	fmt.Fprintf(&b, "| --- | --- |\n")
	fmt.Fprintf(&b, "| Run ID | %s |\n", result.ID)
	fmt.Fprintf(&b, "| Started | %s |\n", result.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Completed | %s |\n", result.CompletedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "| Tasks | %d |\n", result.TotalTasks)
	fmt.Fprintf(&b, "| Passed | %d |\n", result.PassedTasks)
	fmt.Fprintf(&b, "| Failed | %d |\n", result.FailedTasks)
	if result.Skipped > 0 {
		fmt.Fprintf(&b, "| Skipped | %d |\n", result.Skipped)
	}
	fmt.Fprintf(&b, "| Success rate | %.1f%% |\n", result.SuccessRate())
	b.WriteString("\n")

	if result.Exploration != nil {
		renderExploration(&b, result.Exploration)
	}

	b.WriteString("## Tasks\n\n")
	for i, task := range result.Tasks {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, task.Name)
		fmt.Fprintf(&b, "- Status: %s\n", statusLabel(task.Status))
		if task.Description != "" {
			fmt.Fprintf(&b, "- Description: %s\n", task.Description)
		}
		if task.Status != patrol.StatusSkipped {
			fmt.Fprintf(&b, "- Duration: %s\n", task.Duration.Round(time.Millisecond))
		}
		if task.DetectedApp != "" {
			fmt.Fprintf(&b, "- Detected app: %s\n", task.DetectedApp)
		}
		if task.Error != "" {
			fmt.Fprintf(&b, "- Error: %s\n", task.Error)
		}
		if task.Screenshot != "" {
			fmt.Fprintf(&b, "- Screenshot: `%s`\n", task.Screenshot)
		}

		if len(task.Validations) > 0 {
			b.WriteString("- Validations:\n")
			for _, v := range task.Validations {
				marker := "✅"
				if !v.Passed {
					marker = "❌"
				}
				fmt.Fprintf(&b, "  - %s %s: %s\n", marker, v.Name, v.Message)
			}
		}

		if task.AgentMessage != "" {
			b.WriteString("\n<details><summary>Agent output</summary>\n\n")
			fmt.Fprintf(&b, "```\n%s\n```\n\n", task.AgentMessage)
			b.WriteString("</details>\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderExploration(b *strings.Builder, ex *patrol.ExplorationSummary) {
	b.WriteString("## Exploration\n\n")
	fmt.Fprintf(b, "- Pages discovered: %d\n", ex.PagesDiscovered)
	fmt.Fprintf(b, "- Pages tested: %d\n", ex.PagesTested)
	completed := "no"
	if ex.Completed {
		completed = "yes"
	}
	fmt.Fprintf(b, "- Completed: %s\n", completed)

	if len(ex.Pages) > 0 {
		b.WriteString("\n| Page | Tested | Result |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, p := range ex.Pages {
			tested := ""
			if p.Tested {
				tested = "✅"
			}
			fmt.Fprintf(b, "| %s | %s | %s |\n", p.Name, tested, p.Result)
		}
	}
	b.WriteString("\n")
}

// RenderScheduledMarkdown renders a scheduled patrol session as a Markdown
// document, including the full report of the last run.
func RenderScheduledMarkdown(summary *patrol.ScheduledSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Scheduled Patrol Report: %s\n\n", summary.PatrolName)
	if summary.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", summary.Description)
	}

	b.WriteString("## Session\n\n")
	fmt.Fprintf(&b, "| Field | Value |\n")
	fmt.Fprintf(&b, "| --- | --- |\n")
	fmt.Fprintf(&b, "| Started | %s |\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Completed | %s |\n", summary.CompletedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", summary.Duration.Round(time.Second))
	fmt.Fprintf(&b, "| Total runs | %d |\n", summary.TotalRuns)
	fmt.Fprintf(&b, "| Successful runs | %d |\n", summary.SuccessfulRuns)
	fmt.Fprintf(&b, "| Failed runs | %d |\n", summary.FailedRuns)
	fmt.Fprintf(&b, "| Success rate | %.1f%% |\n", summary.SuccessRate())
	b.WriteString("\n")

	if summary.LastRun != nil {
		b.WriteString("## Last Run\n\n")
		// Demote the last run's headings so the document stays well formed.
		last := "\n" + RenderMarkdown(summary.LastRun)
		b.WriteString(strings.ReplaceAll(last, "\n#", "\n##"))
	}

	return b.String()
}

// RenderConsoleSummary renders the short summary printed to the terminal
// after a run.
func RenderConsoleSummary(result *patrol.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nPatrol: %s\n", result.PatrolName)
	fmt.Fprintf(&b, "Passed %d/%d tasks (%.1f%%) in %s\n",
		result.PassedTasks, result.TotalTasks, result.SuccessRate(),
		result.Duration.Round(time.Millisecond))

	for _, task := range result.Tasks {
		fmt.Fprintf(&b, "  %-10s %s\n", statusLabel(task.Status), task.Name)
	}

	if failed := result.FailedResults(); len(failed) > 0 {
		b.WriteString("\nFailures:\n")
		for _, task := range failed {
			fmt.Fprintf(&b, "  %s: %s\n", task.Name, task.Error)
		}
	}

	return b.String()
}
