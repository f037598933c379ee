package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/phone-patrol/agent"
	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// Indicator phrases for falling back on the agent's narrative when it gives
// no explicit verdict. With no failure indicator present the task is treated
// as passed, since the agent completing the instruction without complaint is
// itself the common success signal.
var failureIndicators = []string{
	"test failed",
	"failed",
	"unable to",
	"cannot",
	"could not",
	"error",
	"失败",
	"无法",
	"错误",
	"未能",
}

// executeTask delegates one task to the phone agent and judges the outcome.
// It never returns an error: every failure mode is recorded on the task
// result itself.
func (e *Executor) executeTask(ctx context.Context, task patrol.TaskSpec) patrol.TaskResult {
	log := e.logger.WithField("task", task.Name)
	log.Info(ctx, "executing task", nil)

	result := patrol.TaskResult{
		Name:        task.Name,
		Description: task.Description,
	}
	if err := result.Start(); err != nil {
		result.Status = patrol.StatusFailed
		result.Error = err.Error()
		return result
	}

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	res, err := e.agent.Run(taskCtx, agent.Request{
		Instruction:     task.Instruction,
		SuccessCriteria: task.SuccessCriteria,
		DeviceID:        e.patrol.Execution.DeviceID,
		Lang:            string(e.patrol.Execution.Lang),
		MaxSteps:        e.patrol.Execution.MaxSteps,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			result.Error = fmt.Sprintf("task timed out after %s", task.Timeout)
			_ = result.Complete(patrol.StatusTimeout)
			log.Warn(ctx, "task timed out", logger.Fields{"timeout": task.Timeout.String()})
		case errors.Is(err, context.Canceled):
			result.Error = "patrol interrupted"
			_ = result.Complete(patrol.StatusFailed)
		default:
			result.Error = err.Error()
			_ = result.Complete(patrol.StatusFailed)
			log.Error(ctx, "agent call failed", logger.Fields{"error": err.Error()})
		}
		return result
	}

	result.AgentMessage = res.Message
	result.DetectedApp = res.CurrentApp

	passed := judge(res)
	failReason := ""
	if !passed {
		failReason = "agent judged the task as failed"
	}

	if passed && len(task.ExpectedKeywords) > 0 {
		if !containsAny(res.Message, task.ExpectedKeywords) {
			passed = false
			failReason = fmt.Sprintf("agent output contains none of the expected keywords %v", task.ExpectedKeywords)
		}
	}

	if passed && task.ExpectedApp != "" {
		current, appErr := e.foregroundApp(ctx, res)
		if appErr != nil {
			log.Warn(ctx, "failed to query foreground app", logger.Fields{"error": appErr.Error()})
		} else {
			result.DetectedApp = current
			if !patrol.AppMatches(current, task.ExpectedApp) {
				passed = false
				failReason = fmt.Sprintf("expected app %q in foreground, found %q", task.ExpectedApp, current)
			}
		}
	}

	for _, rule := range task.Validations {
		outcome := e.runValidation(ctx, rule, res, &result)
		result.Validations = append(result.Validations, outcome)
		if !outcome.Passed {
			passed = false
			failReason = outcome.Message
		}
	}

	if e.patrol.Output.SaveScreenshots && e.screenshots != nil && res.Screenshot != "" {
		e.saveScreenshot(ctx, task.Name, res.Screenshot, &result)
	}

	status := patrol.StatusPassed
	if !passed {
		status = patrol.StatusFailed
		result.Error = failReason
	}
	_ = result.Complete(status)

	log.Info(ctx, "task finished", logger.Fields{
		"status":   string(status),
		"duration": result.Duration.String(),
		"steps":    res.Steps,
	})
	return result
}

// judge extracts a pass/fail verdict from the agent's result. The explicit
// verdict wins; otherwise the narrative is scanned for indicator phrases.
func judge(res *agent.Result) bool {
	if res.Success != nil {
		return *res.Success
	}
	message := strings.ToLower(res.Message)
	for _, indicator := range failureIndicators {
		if strings.Contains(message, indicator) {
			return false
		}
	}
	return true
}

// foregroundApp returns the app the device currently shows, preferring the
// value reported inline by the agent over an extra device query.
func (e *Executor) foregroundApp(ctx context.Context, res *agent.Result) (string, error) {
	if res.CurrentApp != "" {
		return res.CurrentApp, nil
	}
	return e.agent.CurrentApp(ctx, e.patrol.Execution.DeviceID)
}

// runValidation evaluates one additional validation rule against the agent
// result and the device state.
func (e *Executor) runValidation(ctx context.Context, rule patrol.ValidationRule, res *agent.Result, taskResult *patrol.TaskResult) patrol.ValidationOutcome {
	outcome := patrol.ValidationOutcome{Name: rule.Name}

	switch rule.Type {
	case patrol.ValidationAppOpened:
		current, err := e.foregroundApp(ctx, res)
		if err != nil {
			outcome.Message = fmt.Sprintf("failed to query foreground app: %v", err)
			return outcome
		}
		taskResult.DetectedApp = current
		outcome.Expected = rule.ExpectedApp
		outcome.Actual = current
		outcome.Passed = patrol.AppMatches(current, rule.ExpectedApp)
		if outcome.Passed {
			outcome.Message = fmt.Sprintf("app %q is in foreground", rule.ExpectedApp)
		} else {
			outcome.Message = failureMessage(rule, fmt.Sprintf("expected app %q in foreground, found %q", rule.ExpectedApp, current))
		}

	case patrol.ValidationTextContains:
		var missing []string
		var found []string
		for _, kw := range rule.Keywords {
			if strings.Contains(strings.ToLower(res.Message), strings.ToLower(kw)) {
				found = append(found, kw)
			} else {
				missing = append(missing, kw)
			}
		}
		outcome.Expected = strings.Join(rule.Keywords, ", ")
		outcome.Actual = strings.Join(found, ", ")
		if rule.MustContainAll {
			outcome.Passed = len(missing) == 0
		} else {
			outcome.Passed = len(found) > 0
		}
		if outcome.Passed {
			outcome.Message = "agent output contains expected keywords"
		} else {
			outcome.Message = failureMessage(rule, fmt.Sprintf("agent output is missing keywords %v", missing))
		}
	}

	return outcome
}

func failureMessage(rule patrol.ValidationRule, fallback string) string {
	if rule.ErrorMessage != "" {
		return rule.ErrorMessage
	}
	return fallback
}

// saveScreenshot decodes and stores the agent's final screenshot, recording
// the storage path on the task result. Storage errors never fail the task.
func (e *Executor) saveScreenshot(ctx context.Context, taskName, encoded string, result *patrol.TaskResult) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		e.logger.Warn(ctx, "failed to decode screenshot", logger.Fields{
			"task":  taskName,
			"error": err.Error(),
		})
		return
	}

	path := fmt.Sprintf("%s/%s/%s.png",
		sanitizeName(e.patrol.Name),
		time.Now().Format("20060102_150405"),
		sanitizeName(taskName))
	if err := e.screenshots.Upload(ctx, path, bytes.NewReader(data)); err != nil {
		e.logger.Warn(ctx, "failed to store screenshot", logger.Fields{
			"task":  taskName,
			"error": err.Error(),
		})
		return
	}
	result.Screenshot = path
}

// sanitizeName turns an arbitrary display name into a storage-safe path
// segment.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// containsAny reports whether the message contains at least one keyword,
// case-insensitively.
func containsAny(message string, keywords []string) bool {
	lowered := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
