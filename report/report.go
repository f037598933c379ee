// Package report renders patrol results as Markdown and JSON documents and
// writes them through the configured artifact store.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
	"github.com/hairizuan-noorazman/phone-patrol/storage"
)

const timestampLayout = "20060102_150405"

// Reporter writes patrol reports to an artifact store.
type Reporter struct {
	store  storage.Store
	logger logger.Logger
	now    func() time.Time
}

// New creates a reporter over the given artifact store.
func New(store storage.Store, log logger.Logger) *Reporter {
	return &Reporter{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// Paths names the documents one report write produced.
type Paths struct {
	Markdown string
	JSON     string
}

// Write renders the result as Markdown and JSON and stores both documents
// under a shared timestamped name.
func (r *Reporter) Write(ctx context.Context, result *patrol.Result) (Paths, error) {
	stamp := r.now().Format(timestampLayout)
	paths := Paths{
		Markdown: fmt.Sprintf("patrol_report_%s.md", stamp),
		JSON:     fmt.Sprintf("patrol_report_%s.json", stamp),
	}

	if err := r.store.Upload(ctx, paths.Markdown, strings.NewReader(RenderMarkdown(result))); err != nil {
		return Paths{}, fmt.Errorf("write markdown report: %w", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("encode json report: %w", err)
	}
	if err := r.store.Upload(ctx, paths.JSON, bytes.NewReader(encoded)); err != nil {
		return Paths{}, fmt.Errorf("write json report: %w", err)
	}

	r.logger.Info(ctx, "patrol report written", logger.Fields{
		"markdown": paths.Markdown,
		"json":     paths.JSON,
	})

	return paths, nil
}

// WriteScheduled renders a scheduled patrol summary as Markdown and JSON and
// stores both documents.
func (r *Reporter) WriteScheduled(ctx context.Context, summary *patrol.ScheduledSummary) (Paths, error) {
	stamp := r.now().Format(timestampLayout)
	paths := Paths{
		Markdown: fmt.Sprintf("scheduled_patrol_report_%s.md", stamp),
		JSON:     fmt.Sprintf("scheduled_patrol_report_%s.json", stamp),
	}

	if err := r.store.Upload(ctx, paths.Markdown, strings.NewReader(RenderScheduledMarkdown(summary))); err != nil {
		return Paths{}, fmt.Errorf("write markdown report: %w", err)
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("encode json report: %w", err)
	}
	if err := r.store.Upload(ctx, paths.JSON, bytes.NewReader(encoded)); err != nil {
		return Paths{}, fmt.Errorf("write json report: %w", err)
	}

	r.logger.Info(ctx, "scheduled patrol report written", logger.Fields{
		"markdown": paths.Markdown,
		"json":     paths.JSON,
	})

	return paths, nil
}
