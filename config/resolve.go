package config

import (
	"time"

	"github.com/hairizuan-noorazman/phone-patrol/agent"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// Environment variable names consulted by the model-config fallback tier.
const (
	EnvBaseURL   = "PHONE_AGENT_BASE_URL"
	EnvModelName = "PHONE_AGENT_MODEL"
	EnvAPIKey    = "PHONE_AGENT_API_KEY"
	EnvZhipuKey  = "ZHIPU_API_KEY"
)

// Defaults applied when neither YAML nor the environment provides a value.
const (
	DefaultBaseURL   = "http://localhost:8000/v1"
	DefaultModelName = "autoglm-phone-9b"
	DefaultAPIKey    = "EMPTY"

	DefaultTaskTimeout   = 30 * time.Second
	DefaultMaxSteps      = 50
	DefaultScreenshotDir = "patrol_screenshots"
	DefaultReportDir     = "patrol_reports"
	DefaultHistoryDriver = "sqlite"
	DefaultHistoryDSN    = "patrol_history.db"

	DefaultScheduleInterval = 5 * time.Minute

	DefaultMaxPages       = 20
	DefaultMaxDepth       = 3
	DefaultMaxExploreTime = 5 * time.Minute
)

// DefaultForbiddenActions are the exploration safety constraints applied when
// the config does not name its own.
var DefaultForbiddenActions = []string{
	"delete", "pay", "purchase", "uninstall", "clear data", "log out", "deactivate account",
}

// DefaultTestActions are the per-page checks applied during exploration when
// the config does not name its own.
var DefaultTestActions = []string{
	"Scroll down to view the content",
	"Scroll up back to the top",
}

// Resolve merges a parsed patrol file with code defaults into the effective
// patrol. YAML-present fields always win; absent fields take the documented
// defaults. The result is validated so config errors surface before any task
// execution.
func Resolve(file *File) (*patrol.Patrol, error) {
	p := &patrol.Patrol{
		Name:        file.Name,
		Description: file.Description,
	}

	exec := file.Execution
	if exec == nil {
		exec = &ExecutionSection{}
	}
	p.Execution = patrol.ExecutionOptions{
		DeviceID:            strVal(exec.DeviceID, ""),
		Lang:                patrol.Lang(strVal(exec.Lang, string(patrol.LangCN))),
		MaxSteps:            intVal(exec.MaxSteps, DefaultMaxSteps),
		ContinueOnError:     boolVal(exec.ContinueOnError, false),
		CloseAppAfterPatrol: boolVal(exec.CloseAppAfterPatrol, true),
	}

	out := file.Output
	if out == nil {
		out = &OutputSection{}
	}
	p.Output = patrol.OutputOptions{
		SaveScreenshots: boolVal(out.SaveScreenshots, true),
		ScreenshotDir:   strVal(out.ScreenshotDir, DefaultScreenshotDir),
		ReportDir:       strVal(out.ReportDir, DefaultReportDir),
		Verbose:         boolVal(out.Verbose, true),
		Storage:         resolveStorage(out.Storage),
		History:         resolveHistory(out.History),
	}

	p.AutoPatrol = resolveAutoPatrol(file.AutoPatrol)
	p.Schedule = resolveSchedule(file.ScheduledPatrol)
	p.Notifications = resolveNotifications(file.Notifications)

	for _, t := range file.Tasks {
		p.Tasks = append(p.Tasks, patrol.TaskSpec{
			Name:             t.Name,
			Description:      t.Description,
			Instruction:      t.Task,
			SuccessCriteria:  t.SuccessCriteria,
			ExpectedApp:      t.ExpectedApp,
			ExpectedKeywords: t.ExpectedKeywords,
			Validations:      resolveValidations(t.Validations),
			Enabled:          boolVal(t.Enabled, true),
			Timeout:          secondsVal(t.Timeout, DefaultTaskTimeout),
		})
	}

	// The exploration task runs before everything else so declared tasks can
	// assume the app state it leaves behind.
	if p.AutoPatrol.Enabled {
		p.Tasks = append([]patrol.TaskSpec{patrol.BuildExplorationTask(p.AutoPatrol)}, p.Tasks...)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// ResolveModel merges the model block with the environment tier and defaults.
// Precedence per field: YAML > .env > process environment > default. The API
// key additionally accepts ZHIPU_API_KEY before PHONE_AGENT_API_KEY.
func ResolveModel(file *File, env *Env) agent.ModelConfig {
	model := file.Model
	if model == nil {
		model = &ModelSection{}
	}

	return agent.ModelConfig{
		BaseURL:   fallback(model.BaseURL, env, []string{EnvBaseURL}, DefaultBaseURL),
		ModelName: fallback(model.ModelName, env, []string{EnvModelName}, DefaultModelName),
		APIKey:    fallback(model.APIKey, env, []string{EnvZhipuKey, EnvAPIKey}, DefaultAPIKey),
	}
}

func fallback(yamlValue *string, env *Env, envKeys []string, def string) string {
	if yamlValue != nil {
		return *yamlValue
	}
	if val := env.Lookup(envKeys...); val != "" {
		return val
	}
	return def
}

func resolveStorage(s *StorageSection) patrol.StorageOptions {
	if s == nil {
		s = &StorageSection{}
	}
	return patrol.StorageOptions{
		Type:     strVal(s.Type, "local"),
		S3Bucket: strVal(s.S3Bucket, ""),
		S3Region: strVal(s.S3Region, "us-east-1"),
	}
}

func resolveHistory(h *HistorySection) patrol.HistoryOptions {
	if h == nil {
		h = &HistorySection{}
	}
	return patrol.HistoryOptions{
		Enabled: boolVal(h.Enabled, false),
		Driver:  strVal(h.Driver, DefaultHistoryDriver),
		DSN:     strVal(h.DSN, DefaultHistoryDSN),
	}
}

func resolveAutoPatrol(ap *AutoPatrolSection) patrol.AutoPatrol {
	if ap == nil || !boolVal(ap.Enabled, false) {
		return patrol.AutoPatrol{}
	}

	forbidden := ap.ForbiddenActions
	if forbidden == nil {
		forbidden = DefaultForbiddenActions
	}
	tests := ap.TestActions
	if tests == nil {
		tests = DefaultTestActions
	}

	return patrol.AutoPatrol{
		Enabled:             true,
		TargetApp:           strVal(ap.TargetApp, ""),
		MaxPages:            intVal(ap.MaxPages, DefaultMaxPages),
		MaxDepth:            intVal(ap.MaxDepth, DefaultMaxDepth),
		MaxTime:             secondsVal(ap.MaxTime, DefaultMaxExploreTime),
		ForbiddenActions:    forbidden,
		TestActions:         tests,
		Strategy:            patrol.ExploreStrategy(strVal(ap.Strategy, string(patrol.StrategyBreadthFirst))),
		SaveDiscoveredPages: boolVal(ap.SaveDiscoveredPages, true),
		ScreenshotEachPage:  boolVal(ap.ScreenshotEachPage, false),
	}
}

func resolveSchedule(s *ScheduleSection) patrol.Schedule {
	if s == nil || !boolVal(s.Enabled, false) {
		return patrol.Schedule{}
	}
	return patrol.Schedule{
		Enabled:         true,
		SuccessInterval: secondsVal(s.SuccessInterval, DefaultScheduleInterval),
		FailureInterval: secondsVal(s.FailureInterval, DefaultScheduleInterval),
		MaxRuns:         intVal(s.MaxRuns, 0),
	}
}

func resolveNotifications(n *NotificationsSection) patrol.Notifications {
	if n == nil || n.Lark == nil {
		return patrol.Notifications{}
	}
	return patrol.Notifications{
		Lark: patrol.LarkOptions{
			Enabled:      boolVal(n.Lark.Enabled, false),
			WebhookURL:   strVal(n.Lark.WebhookURL, ""),
			MentionUsers: n.Lark.MentionUsers,
		},
	}
}

func resolveValidations(sections []ValidationSection) []patrol.ValidationRule {
	if len(sections) == 0 {
		return nil
	}
	rules := make([]patrol.ValidationRule, 0, len(sections))
	for _, v := range sections {
		rules = append(rules, patrol.ValidationRule{
			Name:           v.Name,
			Type:           patrol.ValidationType(v.Type),
			ExpectedApp:    v.ExpectedApp,
			Keywords:       v.Keywords,
			MustContainAll: v.MustContainAll,
			ErrorMessage:   v.ErrorMessage,
		})
	}
	return rules
}

func strVal(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func intVal(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func boolVal(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

func secondsVal(p *int, def time.Duration) time.Duration {
	if p != nil {
		return time.Duration(*p) * time.Second
	}
	return def
}
