package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

var (
	// ErrMissingWebhookURL is returned when the Lark notifier has no webhook.
	ErrMissingWebhookURL = errors.New("lark webhook URL is required")

	// ErrWebhookRejected is returned when Lark accepts the HTTP request but
	// rejects the message.
	ErrWebhookRejected = errors.New("lark webhook rejected the message")
)

const larkTimeout = 10 * time.Second

// LarkNotifier posts failed patrol runs to a Feishu/Lark group webhook as a
// rich-text message. Successful runs are never posted.
type LarkNotifier struct {
	webhookURL   string
	mentionUsers []string
	client       *http.Client
}

// NewLark creates a Lark webhook notifier.
func NewLark(opts patrol.LarkOptions) (*LarkNotifier, error) {
	if opts.Enabled && opts.WebhookURL == "" {
		return nil, ErrMissingWebhookURL
	}
	return &LarkNotifier{
		webhookURL:   opts.WebhookURL,
		mentionUsers: opts.MentionUsers,
		client:       &http.Client{Timeout: larkTimeout},
	}, nil
}

func (l *LarkNotifier) Name() string { return "lark" }

func (l *LarkNotifier) Enabled() bool { return l.webhookURL != "" }

// Notify posts the result to the webhook when the run failed. Lark signals
// rejection inside a 200 response, so the body's code field is checked too.
func (l *LarkNotifier) Notify(ctx context.Context, result *patrol.Result) error {
	if result.Succeeded() {
		return nil
	}

	payload, err := json.Marshal(l.buildMessage(result))
	if err != nil {
		return fmt.Errorf("marshal lark message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create lark request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to lark webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	}

	var ack struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read lark response: %w", err)
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("decode lark response: %w", err)
	}
	if ack.Code != 0 {
		return fmt.Errorf("%w: code %d %s", ErrWebhookRejected, ack.Code, ack.Msg)
	}
	return nil
}

// larkMessage is the rich-text webhook payload.
type larkMessage struct {
	MsgType string      `json:"msg_type"`
	Content larkContent `json:"content"`
}

type larkContent struct {
	Post larkPost `json:"post"`
}

type larkPost struct {
	ZhCN larkPostBody `json:"zh_cn"`
}

type larkPostBody struct {
	Title   string           `json:"title"`
	Content [][]larkPostElem `json:"content"`
}

type larkPostElem struct {
	Tag    string `json:"tag"`
	Text   string `json:"text,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

func (l *LarkNotifier) buildMessage(result *patrol.Result) larkMessage {
	lines := [][]larkPostElem{
		{{Tag: "text", Text: fmt.Sprintf("Patrol: %s", result.PatrolName)}},
		{{Tag: "text", Text: fmt.Sprintf("Result: %d/%d tasks passed (%.1f%%)",
			result.PassedTasks, result.TotalTasks, result.SuccessRate())}},
		{{Tag: "text", Text: fmt.Sprintf("Duration: %s", result.Duration.Round(time.Second))}},
	}

	for _, task := range result.FailedResults() {
		line := fmt.Sprintf("✗ %s", task.Name)
		if task.Error != "" {
			line += ": " + task.Error
		}
		if task.AgentMessage != "" {
			line += " | " + previewText(task.AgentMessage)
		}
		lines = append(lines, []larkPostElem{{Tag: "text", Text: line}})
	}

	if len(l.mentionUsers) > 0 {
		var mentions []larkPostElem
		for _, user := range l.mentionUsers {
			mentions = append(mentions, larkPostElem{Tag: "at", UserID: user})
		}
		lines = append(lines, mentions)
	}

	return larkMessage{
		MsgType: "post",
		Content: larkContent{
			Post: larkPost{
				ZhCN: larkPostBody{
					Title:   fmt.Sprintf("Patrol failed: %s", result.PatrolName),
					Content: lines,
				},
			},
		},
	}
}

// previewLimit caps how much agent output a failed-task line carries.
const previewLimit = 200

func previewText(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + "..."
}
