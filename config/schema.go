package config

// File is the raw patrol YAML document. Optional scalars are pointers so the
// resolver can tell "absent" from "zero value": a field present in YAML always
// wins over environment values and defaults, even when set to false or zero.
type File struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Model           *ModelSection         `yaml:"model"`
	Execution       *ExecutionSection     `yaml:"execution"`
	Output          *OutputSection        `yaml:"output"`
	AutoPatrol      *AutoPatrolSection    `yaml:"auto_patrol"`
	ScheduledPatrol *ScheduleSection      `yaml:"scheduled_patrol"`
	Notifications   *NotificationsSection `yaml:"notifications"`

	Tasks []TaskSection `yaml:"tasks"`
}

// ModelSection configures the phone agent's model endpoint.
type ModelSection struct {
	BaseURL   *string `yaml:"base_url"`
	ModelName *string `yaml:"model_name"`
	APIKey    *string `yaml:"api_key"`
}

// ExecutionSection configures how tasks are driven.
type ExecutionSection struct {
	DeviceID            *string `yaml:"device_id"`
	Lang                *string `yaml:"lang"`
	MaxSteps            *int    `yaml:"max_steps"`
	ContinueOnError     *bool   `yaml:"continue_on_error"`
	CloseAppAfterPatrol *bool   `yaml:"close_app_after_patrol"`
}

// OutputSection configures reports, screenshots, storage and run history.
type OutputSection struct {
	SaveScreenshots *bool   `yaml:"save_screenshots"`
	ScreenshotDir   *string `yaml:"screenshot_dir"`
	ReportDir       *string `yaml:"report_dir"`
	Verbose         *bool   `yaml:"verbose"`

	Storage *StorageSection `yaml:"storage"`
	History *HistorySection `yaml:"history"`
}

// StorageSection selects the blob storage backend.
type StorageSection struct {
	Type     *string `yaml:"type"`
	S3Bucket *string `yaml:"s3_bucket"`
	S3Region *string `yaml:"s3_region"`
}

// HistorySection selects the run-history database.
type HistorySection struct {
	Enabled *bool   `yaml:"enabled"`
	Driver  *string `yaml:"driver"`
	DSN     *string `yaml:"dsn"`
}

// AutoPatrolSection configures automatic app exploration.
type AutoPatrolSection struct {
	Enabled             *bool    `yaml:"enabled"`
	TargetApp           *string  `yaml:"target_app"`
	MaxPages            *int     `yaml:"max_pages"`
	MaxDepth            *int     `yaml:"max_depth"`
	MaxTime             *int     `yaml:"max_time"` // seconds
	ForbiddenActions    []string `yaml:"forbidden_actions"`
	TestActions         []string `yaml:"test_actions"`
	Strategy            *string  `yaml:"explore_strategy"`
	SaveDiscoveredPages *bool    `yaml:"save_discovered_pages"`
	ScreenshotEachPage  *bool    `yaml:"screenshot_each_page"`
}

// ScheduleSection configures repeated patrol runs.
type ScheduleSection struct {
	Enabled         *bool `yaml:"enabled"`
	SuccessInterval *int  `yaml:"success_interval"` // seconds
	FailureInterval *int  `yaml:"failure_interval"` // seconds
	MaxRuns         *int  `yaml:"max_runs"`
}

// NotificationsSection configures notification channels.
type NotificationsSection struct {
	Lark *LarkSection `yaml:"lark"`
}

// LarkSection configures the Feishu/Lark webhook notifier.
type LarkSection struct {
	Enabled      *bool    `yaml:"enabled"`
	WebhookURL   *string  `yaml:"webhook_url"`
	MentionUsers []string `yaml:"mention_users"`
}

// TaskSection is one task entry in the YAML document.
type TaskSection struct {
	Name             string              `yaml:"name"`
	Description      string              `yaml:"description"`
	Task             string              `yaml:"task"`
	SuccessCriteria  string              `yaml:"success_criteria"`
	ExpectedApp      string              `yaml:"expected_app"`
	ExpectedKeywords []string            `yaml:"expected_keywords"`
	Validations      []ValidationSection `yaml:"additional_validations"`
	Enabled          *bool               `yaml:"enabled"`
	Timeout          *int                `yaml:"timeout"` // seconds
}

// ValidationSection is one additional validation rule in the YAML document.
type ValidationSection struct {
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"`
	ExpectedApp    string   `yaml:"expected_app"`
	Keywords       []string `yaml:"keywords"`
	MustContainAll bool     `yaml:"must_contain_all"`
	ErrorMessage   string   `yaml:"error_message"`
}
