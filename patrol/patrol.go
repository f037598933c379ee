package patrol

import (
	"errors"
	"time"
)

var (
	// ErrMissingName is returned when a patrol has no name.
	ErrMissingName = errors.New("patrol name is required")

	// ErrMissingDescription is returned when a patrol has no description.
	ErrMissingDescription = errors.New("patrol description is required")

	// ErrNoTasks is returned when a patrol has no tasks and auto patrol is disabled.
	ErrNoTasks = errors.New("at least one task or auto_patrol is required")

	// ErrMissingTaskName is returned when a task has no name.
	ErrMissingTaskName = errors.New("task name is required")

	// ErrMissingInstruction is returned when a task has no instruction.
	ErrMissingInstruction = errors.New("task instruction is required")

	// ErrInvalidLang is returned when the UI language is not supported.
	ErrInvalidLang = errors.New("lang must be either \"cn\" or \"en\"")

	// ErrInvalidStrategy is returned when the exploration strategy is unknown.
	ErrInvalidStrategy = errors.New("invalid exploration strategy")

	// ErrInvalidValidationType is returned when a validation rule type is unknown.
	ErrInvalidValidationType = errors.New("invalid validation type")

	// ErrMissingExpectedApp is returned when an app_opened rule has no expected app.
	ErrMissingExpectedApp = errors.New("expected_app is required for app_opened validation")

	// ErrMissingKeywords is returned when a text_contains rule has no keywords.
	ErrMissingKeywords = errors.New("keywords are required for text_contains validation")
)

// Lang is the UI language the phone agent operates in.
type Lang string

const (
	LangCN Lang = "cn"
	LangEN Lang = "en"
)

// IsValid checks if the language is supported.
func (l Lang) IsValid() bool {
	return l == LangCN || l == LangEN
}

// ValidationType identifies an additional validation strategy for a task.
//
// In most cases the success criteria alone should drive the agent's judgment;
// validation rules exist for the few checks that need a hard device-state or
// output assertion on top of it.
type ValidationType string

const (
	// ValidationAppOpened asserts that a specific app is in the foreground.
	ValidationAppOpened ValidationType = "app_opened"

	// ValidationTextContains asserts that the agent output contains keywords.
	ValidationTextContains ValidationType = "text_contains"
)

// IsValid checks if the validation type is known.
func (v ValidationType) IsValid() bool {
	return v == ValidationAppOpened || v == ValidationTextContains
}

// ValidationRule is an additional validation applied to a task after the
// agent's own judgment.
type ValidationRule struct {
	Name           string         `yaml:"name"`
	Type           ValidationType `yaml:"type"`
	ExpectedApp    string         `yaml:"expected_app,omitempty"`
	Keywords       []string       `yaml:"keywords,omitempty"`
	MustContainAll bool           `yaml:"must_contain_all,omitempty"`
	ErrorMessage   string         `yaml:"error_message,omitempty"`
}

// Validate checks that the rule carries the parameters its type requires.
func (r *ValidationRule) Validate() error {
	if !r.Type.IsValid() {
		return ErrInvalidValidationType
	}
	if r.Type == ValidationAppOpened && r.ExpectedApp == "" {
		return ErrMissingExpectedApp
	}
	if r.Type == ValidationTextContains && len(r.Keywords) == 0 {
		return ErrMissingKeywords
	}
	return nil
}

// TaskSpec describes a single patrol task. One TaskSpec maps to exactly one
// delegated call to the phone agent: the agent receives the instruction plus
// the success criteria and judges the outcome itself.
type TaskSpec struct {
	Name             string
	Description      string
	Instruction      string
	SuccessCriteria  string
	ExpectedApp      string
	ExpectedKeywords []string
	Validations      []ValidationRule
	Enabled          bool
	Timeout          time.Duration
}

// Validate checks if the task spec has valid required fields.
func (t *TaskSpec) Validate() error {
	if t.Name == "" {
		return ErrMissingTaskName
	}
	if t.Instruction == "" {
		return ErrMissingInstruction
	}
	for i := range t.Validations {
		if err := t.Validations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionOptions control how the executor drives the agent.
type ExecutionOptions struct {
	DeviceID            string
	Lang                Lang
	MaxSteps            int
	ContinueOnError     bool
	CloseAppAfterPatrol bool
}

// HistoryOptions select the run-history database.
type HistoryOptions struct {
	Enabled bool
	Driver  string // "sqlite" or "mysql"
	DSN     string
}

// OutputOptions control report and screenshot generation.
type OutputOptions struct {
	SaveScreenshots bool
	ScreenshotDir   string
	ReportDir       string
	Verbose         bool
	Storage         StorageOptions
	History         HistoryOptions
}

// StorageOptions select the blob storage backend for reports and screenshots.
type StorageOptions struct {
	Type     string // "local" or "s3"
	S3Bucket string
	S3Region string
}

// ExploreStrategy is the ordering strategy for auto patrol.
type ExploreStrategy string

const (
	// StrategyBreadthFirst explores all top-level pages before descending.
	StrategyBreadthFirst ExploreStrategy = "breadth_first"

	// StrategyDepthFirst explores each branch completely before the next.
	StrategyDepthFirst ExploreStrategy = "depth_first"
)

// IsValid checks if the strategy is known.
func (s ExploreStrategy) IsValid() bool {
	return s == StrategyBreadthFirst || s == StrategyDepthFirst
}

// AutoPatrol configures automatic app exploration. When enabled, a synthetic
// exploration task is prepended to the task list.
type AutoPatrol struct {
	Enabled             bool
	TargetApp           string
	MaxPages            int
	MaxDepth            int
	MaxTime             time.Duration
	ForbiddenActions    []string
	TestActions         []string
	Strategy            ExploreStrategy
	SaveDiscoveredPages bool
	ScreenshotEachPage  bool
}

// Schedule configures repeated patrol runs. The interval after each run
// depends on whether the run passed, so flaky checks tighten automatically.
type Schedule struct {
	Enabled         bool
	SuccessInterval time.Duration
	FailureInterval time.Duration
	MaxRuns         int // 0 = unlimited
}

// LarkOptions configure the Feishu/Lark webhook notifier.
type LarkOptions struct {
	Enabled      bool
	WebhookURL   string
	MentionUsers []string
}

// Notifications configure all notification channels.
type Notifications struct {
	Lark LarkOptions
}

// Patrol is the complete, effective configuration of a patrol run. It is
// produced once by the config package and never mutated afterwards.
type Patrol struct {
	Name          string
	Description   string
	Tasks         []TaskSpec
	AutoPatrol    AutoPatrol
	Schedule      Schedule
	Execution     ExecutionOptions
	Output        OutputOptions
	Notifications Notifications
}

// Validate checks if the patrol has valid required fields.
func (p *Patrol) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	if p.Description == "" {
		return ErrMissingDescription
	}
	if !p.Execution.Lang.IsValid() {
		return ErrInvalidLang
	}
	if len(p.Tasks) == 0 && !p.AutoPatrol.Enabled {
		return ErrNoTasks
	}
	if p.AutoPatrol.Enabled && !p.AutoPatrol.Strategy.IsValid() {
		return ErrInvalidStrategy
	}
	for i := range p.Tasks {
		if err := p.Tasks[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EnabledTasks returns the tasks that will actually run, in declaration order.
func (p *Patrol) EnabledTasks() []TaskSpec {
	enabled := make([]TaskSpec, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// ReferencedApps collects every app the patrol mentions, either as a task's
// expected app or in an app_opened validation rule. Used for post-run cleanup.
func (p *Patrol) ReferencedApps() []string {
	seen := make(map[string]struct{})
	var apps []string
	add := func(app string) {
		if app == "" {
			return
		}
		if _, ok := seen[app]; ok {
			return
		}
		seen[app] = struct{}{}
		apps = append(apps, app)
	}

	for _, t := range p.Tasks {
		add(t.ExpectedApp)
		for _, v := range t.Validations {
			if v.Type == ValidationAppOpened {
				add(v.ExpectedApp)
			}
		}
	}
	return apps
}
