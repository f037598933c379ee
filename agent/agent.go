// Package agent talks to the external phone agent: an opaque service that
// takes a natural-language instruction plus success criteria, drives a mobile
// device, and judges whether the instruction succeeded. Its perception,
// action planning, and judgment are entirely its own business; this package
// only defines the wire contract.
package agent

import (
	"context"
	"errors"
)

var (
	// ErrMissingBaseURL is returned when the model config has no endpoint.
	ErrMissingBaseURL = errors.New("agent base URL is required")

	// ErrAgentUnavailable is returned when the agent endpoint cannot be reached.
	ErrAgentUnavailable = errors.New("phone agent is unavailable")
)

// ModelConfig locates the phone agent's model endpoint. Produced by the
// config package with the standard YAML > .env > environment > default merge.
type ModelConfig struct {
	BaseURL   string
	ModelName string
	APIKey    string
}

// Request is one delegated task execution.
type Request struct {
	Instruction     string `json:"instruction"`
	SuccessCriteria string `json:"success_criteria,omitempty"`
	DeviceID        string `json:"device_id,omitempty"`
	Lang            string `json:"lang,omitempty"`
	MaxSteps        int    `json:"max_steps,omitempty"`
}

// Result is the agent's verdict on one task, plus whatever evidence it
// collected along the way.
type Result struct {
	// Success is the agent's own judgment against the success criteria.
	// Nil means the agent gave no explicit verdict and the caller should
	// fall back to scanning the message.
	Success *bool `json:"success"`

	// Message is the agent's narrative of what it did and observed.
	Message string `json:"message"`

	// CurrentApp is the app left in the foreground, when reported.
	CurrentApp string `json:"current_app,omitempty"`

	// Screenshot is an optional base64-encoded PNG of the final state.
	Screenshot string `json:"screenshot,omitempty"`

	// Steps is the number of device actions the agent performed.
	Steps int `json:"steps,omitempty"`
}

// Agent is the boundary to the external phone agent.
type Agent interface {
	// Run executes one instruction and returns the agent's judgment.
	Run(ctx context.Context, req Request) (*Result, error)

	// Reset clears the agent's conversation state between patrol runs.
	Reset(ctx context.Context) error

	// CurrentApp reports the app currently in the device foreground.
	CurrentApp(ctx context.Context, deviceID string) (string, error)

	// Home returns the device to the home screen.
	Home(ctx context.Context, deviceID string) error
}
