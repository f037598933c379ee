package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hairizuan-noorazman/phone-patrol/agent"
	"github.com/hairizuan-noorazman/phone-patrol/config"
	"github.com/hairizuan-noorazman/phone-patrol/executor"
	"github.com/hairizuan-noorazman/phone-patrol/history"
	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/notify"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
	"github.com/hairizuan-noorazman/phone-patrol/report"
	"github.com/hairizuan-noorazman/phone-patrol/storage"
)

// runPatrol loads the config, wires the collaborators, and drives the
// executor. The process exit code reflects the patrol outcome, not just
// whether the program itself ran cleanly.
func runPatrol(parent context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := "info"
	if flagVerbose {
		level = "debug"
	}
	log := logger.NewLogrusLogger(level)

	env, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	if env.File() != "" {
		log.Debug(ctx, "loaded .env file", logger.Fields{"path": env.File()})
	}

	file, err := config.LoadPatrolFile(configPath, env)
	if err != nil {
		return err
	}
	p, err := config.Resolve(file)
	if err != nil {
		return fmt.Errorf("invalid patrol config: %w", err)
	}
	if p.Output.Verbose && !flagVerbose {
		log = logger.NewLogrusLogger("debug")
	}

	model := config.ResolveModel(file, env)
	ag, err := agent.NewClient(model, log)
	if err != nil {
		return fmt.Errorf("configure phone agent client: %w", err)
	}

	opts, err := buildOptions(p, log)
	if err != nil {
		return err
	}

	reports, err := storage.New(p.Output.Storage, p.Output.ReportDir)
	if err != nil {
		return fmt.Errorf("configure report storage: %w", err)
	}
	reporter := report.New(reports, log)

	exec := executor.New(p, ag, log, opts)

	fmt.Printf("Patrol: %s\n%s\nTasks: %d enabled / %d total, agent: %s\n\n",
		p.Name, p.Description, len(p.EnabledTasks()), len(p.Tasks), model.BaseURL)

	if p.Schedule.Enabled {
		return runScheduled(ctx, exec, reporter)
	}
	return runOnce(ctx, exec, reporter)
}

// buildOptions wires the optional executor collaborators from the patrol's
// output and notification settings.
func buildOptions(p *patrol.Patrol, log logger.Logger) (executor.Options, error) {
	var opts executor.Options

	if p.Output.SaveScreenshots {
		store, err := storage.New(p.Output.Storage, p.Output.ScreenshotDir)
		if err != nil {
			return opts, fmt.Errorf("configure screenshot storage: %w", err)
		}
		opts.Screenshots = store
	}

	if p.Output.History.Enabled {
		store, err := history.NewStore(p.Output.History, log)
		if err != nil {
			return opts, fmt.Errorf("open history database: %w", err)
		}
		opts.History = store
	}

	if p.Notifications.Lark.Enabled {
		lark, err := notify.NewLark(p.Notifications.Lark)
		if err != nil {
			return opts, fmt.Errorf("configure lark notifier: %w", err)
		}
		opts.Notifier = notify.NewManager(log, lark)
	}

	return opts, nil
}

func runOnce(ctx context.Context, exec *executor.Executor, reporter *report.Reporter) error {
	result, runErr := exec.Run(ctx)

	// The report covers whatever completed, interrupted or not.
	paths, err := reporter.Write(context.WithoutCancel(ctx), result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	} else {
		fmt.Printf("Report written to %s\n", paths.Markdown)
	}

	fmt.Print(report.RenderConsoleSummary(result))

	return runExitError(result, runErr)
}

// runExitError maps a single-run outcome to the process exit contract:
// nil (exit 0) when every task passed, exit 1 on any failure, exit 130 when
// the run was interrupted.
func runExitError(result *patrol.Result, runErr error) error {
	if errors.Is(runErr, context.Canceled) {
		return &exitError{code: exitInterrupted, msg: "Patrol interrupted"}
	}
	if !result.Succeeded() {
		return &exitError{code: exitFailed}
	}
	return nil
}

func runScheduled(ctx context.Context, exec *executor.Executor, reporter *report.Reporter) error {
	summary, runErr := exec.RunScheduled(ctx)

	paths, err := reporter.WriteScheduled(context.WithoutCancel(ctx), summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	} else {
		fmt.Printf("Report written to %s\n", paths.Markdown)
	}

	fmt.Printf("\nScheduled patrol: %s\n", summary.PatrolName)
	fmt.Printf("Runs: %d total, %d passed, %d failed (%.1f%%)\n",
		summary.TotalRuns, summary.SuccessfulRuns, summary.FailedRuns, summary.SuccessRate())

	return scheduledExitError(summary, runErr)
}

// scheduledExitError follows the same contract as runExitError, judged on the
// session summary instead of a single result.
func scheduledExitError(summary *patrol.ScheduledSummary, runErr error) error {
	if errors.Is(runErr, context.Canceled) {
		return &exitError{code: exitInterrupted, msg: "Scheduled patrol interrupted"}
	}
	if summary.FailedRuns > 0 {
		return &exitError{code: exitFailed}
	}
	return nil
}
