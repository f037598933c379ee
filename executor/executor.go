// Package executor runs patrol tasks sequentially against the phone agent
// and collects per-task outcomes. There is deliberately no parallelism: a
// patrol drives one device, one task at a time, in declaration order.
package executor

import (
	"context"
	"time"

	"github.com/hairizuan-noorazman/phone-patrol/agent"
	"github.com/hairizuan-noorazman/phone-patrol/history"
	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/notify"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
	"github.com/hairizuan-noorazman/phone-patrol/storage"
)

// Executor drives a single patrol configuration.
type Executor struct {
	patrol      *patrol.Patrol
	agent       agent.Agent
	screenshots storage.Store
	history     history.Store
	notifier    *notify.Manager
	logger      logger.Logger
}

// Options carry the optional collaborators of an executor. Any of them may be
// nil; the executor then simply skips the corresponding step.
type Options struct {
	// Screenshots receives decoded per-task screenshots when the patrol's
	// output options enable them.
	Screenshots storage.Store

	// History records completed runs.
	History history.Store

	// Notifier receives failed runs.
	Notifier *notify.Manager
}

// New creates an executor for the given effective patrol configuration.
func New(p *patrol.Patrol, ag agent.Agent, log logger.Logger, opts Options) *Executor {
	return &Executor{
		patrol:      p,
		agent:       ag,
		screenshots: opts.Screenshots,
		history:     opts.History,
		notifier:    opts.Notifier,
		logger:      log.WithField("patrol", p.Name),
	}
}

// Run executes the patrol once. Tasks run in declaration order; a failing
// task halts the run unless continue_on_error is set. The returned result is
// complete even when the run was halted or interrupted; the error is only
// non-nil when the context was cancelled mid-run.
func (e *Executor) Run(ctx context.Context) (*patrol.Result, error) {
	e.logger.Info(ctx, "starting patrol", logger.Fields{
		"tasks": len(e.patrol.Tasks),
	})

	result := patrol.NewResult(e.patrol)

	for _, task := range e.patrol.Tasks {
		if ctx.Err() != nil {
			break
		}

		if !task.Enabled {
			result.Append(patrol.TaskResult{
				Name:        task.Name,
				Description: task.Description,
				Status:      patrol.StatusSkipped,
			})
			continue
		}

		taskResult := e.executeTask(ctx, task)
		result.Append(taskResult)

		if taskResult.Status.IsFailure() && !e.patrol.Execution.ContinueOnError {
			e.logger.Warn(ctx, "task failed, halting patrol", logger.Fields{
				"task": task.Name,
			})
			break
		}
	}

	if e.patrol.Execution.CloseAppAfterPatrol && ctx.Err() == nil {
		e.closeApps(ctx)
	}

	if e.patrol.AutoPatrol.Enabled {
		e.summarizeExploration(result)
	}

	result.Finish()

	// History and notifications are best effort: a full device patrol is too
	// expensive to fail over a bookkeeping error.
	if e.history != nil {
		if err := e.history.Record(context.WithoutCancel(ctx), result); err != nil {
			e.logger.Error(ctx, "failed to record run history", logger.Fields{
				"error": err.Error(),
			})
		}
	}
	if e.notifier != nil {
		if err := e.notifier.Notify(context.WithoutCancel(ctx), result); err != nil {
			e.logger.Error(ctx, "failed to send notifications", logger.Fields{
				"error": err.Error(),
			})
		}
	}

	e.logger.Info(ctx, "patrol finished", logger.Fields{
		"total":  result.TotalTasks,
		"passed": result.PassedTasks,
		"failed": result.FailedTasks,
	})

	return result, ctx.Err()
}

// RunScheduled executes the patrol repeatedly until the context is cancelled
// or max_runs is reached. The wait between runs depends on the previous
// outcome, and the agent's conversation state is reset so every run starts
// from a clean context.
func (e *Executor) RunScheduled(ctx context.Context) (*patrol.ScheduledSummary, error) {
	schedule := e.patrol.Schedule
	summary := &patrol.ScheduledSummary{
		PatrolName:  e.patrol.Name,
		Description: e.patrol.Description,
		StartedAt:   time.Now(),
	}

	e.logger.Info(ctx, "starting scheduled patrol", logger.Fields{
		"success_interval": schedule.SuccessInterval.String(),
		"failure_interval": schedule.FailureInterval.String(),
		"max_runs":         schedule.MaxRuns,
	})

	for ctx.Err() == nil {
		if schedule.MaxRuns > 0 && summary.TotalRuns >= schedule.MaxRuns {
			e.logger.Info(ctx, "reached max runs, stopping scheduled patrol", nil)
			break
		}

		if summary.TotalRuns > 0 {
			if err := e.agent.Reset(ctx); err != nil {
				e.logger.Warn(ctx, "failed to reset agent state", logger.Fields{
					"error": err.Error(),
				})
			}
		}

		result, err := e.Run(ctx)
		summary.TotalRuns++
		summary.LastRun = result
		if result.Succeeded() {
			summary.SuccessfulRuns++
		} else {
			summary.FailedRuns++
		}
		if err != nil {
			break
		}

		if schedule.MaxRuns > 0 && summary.TotalRuns >= schedule.MaxRuns {
			break
		}

		interval := schedule.FailureInterval
		if result.Succeeded() {
			interval = schedule.SuccessInterval
		}
		e.logger.Info(ctx, "waiting before next run", logger.Fields{
			"interval": interval.String(),
		})
		if err := wait(ctx, interval); err != nil {
			break
		}
	}

	summary.CompletedAt = time.Now()
	summary.Duration = summary.CompletedAt.Sub(summary.StartedAt)

	return summary, ctx.Err()
}

// closeApps returns the device to the home screen for every app the patrol
// touched, so background state does not leak into the next run.
func (e *Executor) closeApps(ctx context.Context) {
	apps := e.patrol.ReferencedApps()
	if len(apps) == 0 {
		return
	}

	e.logger.Info(ctx, "cleaning up apps", logger.Fields{
		"apps": len(apps),
	})
	for _, app := range apps {
		if err := e.agent.Home(ctx, e.patrol.Execution.DeviceID); err != nil {
			e.logger.Warn(ctx, "failed to close app", logger.Fields{
				"app":   app,
				"error": err.Error(),
			})
		}
	}
}

// summarizeExploration extracts discovered pages from the exploration task's
// output and attaches them to the result.
func (e *Executor) summarizeExploration(result *patrol.Result) {
	for _, task := range result.Tasks {
		if task.Name != patrol.ExplorationTaskName {
			continue
		}

		pages := patrol.ParseDiscoveredPages(task.AgentMessage)
		tested := 0
		for _, p := range pages {
			if p.Tested {
				tested++
			}
		}

		summary := &patrol.ExplorationSummary{
			PagesDiscovered: len(pages),
			PagesTested:     tested,
			Completed:       task.Status == patrol.StatusPassed,
		}
		if e.patrol.AutoPatrol.SaveDiscoveredPages {
			summary.Pages = pages
		}
		result.Exploration = summary
		return
	}
}

// wait blocks for the given duration or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
