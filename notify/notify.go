// Package notify pushes patrol outcomes to external channels. Notifiers only
// fire on failed runs; a quiet channel means the patrol is healthy.
package notify

import (
	"context"
	"fmt"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// Notifier is a single notification channel.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string

	// Enabled reports whether the channel is configured and active.
	Enabled() bool

	// Notify delivers the outcome of one patrol run.
	Notify(ctx context.Context, result *patrol.Result) error
}

// Manager fans a patrol result out to every enabled notifier. Delivery
// failures on one channel do not stop the others.
type Manager struct {
	notifiers []Notifier
	logger    logger.Logger
}

// NewManager creates a manager over the given notifiers.
func NewManager(log logger.Logger, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		logger:    log,
	}
}

// Notify delivers the result to all enabled channels and returns the last
// delivery error, if any.
func (m *Manager) Notify(ctx context.Context, result *patrol.Result) error {
	var lastErr error
	for _, n := range m.notifiers {
		if !n.Enabled() {
			continue
		}
		if err := n.Notify(ctx, result); err != nil {
			m.logger.Error(ctx, "notification delivery failed", logger.Fields{
				"channel": n.Name(),
				"error":   err.Error(),
			})
			lastErr = fmt.Errorf("notify via %s: %w", n.Name(), err)
			continue
		}
		m.logger.Info(ctx, "notification delivered", logger.Fields{
			"channel": n.Name(),
		})
	}
	return lastErr
}
