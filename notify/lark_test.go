package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
	"github.com/hairizuan-noorazman/phone-patrol/testutil"
)

func TestNewLark(t *testing.T) {
	t.Run("enabled without webhook", func(t *testing.T) {
		_, err := NewLark(patrol.LarkOptions{Enabled: true})
		assert.ErrorIs(t, err, ErrMissingWebhookURL)
	})

	t.Run("disabled notifier", func(t *testing.T) {
		n, err := NewLark(patrol.LarkOptions{})
		require.NoError(t, err)
		assert.False(t, n.Enabled())
		assert.Equal(t, "lark", n.Name())
	})
}

func TestLarkNotifier_Notify(t *testing.T) {
	t.Run("failed run is posted", func(t *testing.T) {
		var received larkMessage
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Write([]byte(`{"code": 0, "msg": "success"}`))
		}))
		defer server.Close()

		n, err := NewLark(patrol.LarkOptions{
			Enabled:      true,
			WebhookURL:   server.URL,
			MentionUsers: []string{"ou_oncall"},
		})
		require.NoError(t, err)

		result := testutil.SampleResult()
		require.NoError(t, n.Notify(context.Background(), result))

		assert.Equal(t, "post", received.MsgType)
		body := received.Content.Post.ZhCN
		assert.Contains(t, body.Title, result.PatrolName)

		// Failed task names, the agent's verdict text, and the mention land
		// in the message body.
		var sawFailure, sawPreview, sawMention bool
		for _, line := range body.Content {
			for _, elem := range line {
				if elem.Tag == "at" && elem.UserID == "ou_oncall" {
					sawMention = true
				}
				if elem.Tag == "text" && strings.Contains(elem.Text, "Check wifi") {
					sawFailure = true
				}
				if elem.Tag == "text" && strings.Contains(elem.Text, "Could not find the wifi toggle") {
					sawPreview = true
				}
			}
		}
		assert.True(t, sawMention)
		assert.True(t, sawFailure)
		assert.True(t, sawPreview)
	})

	t.Run("successful run is not posted", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"code": 0}`))
		}))
		defer server.Close()

		n, err := NewLark(patrol.LarkOptions{Enabled: true, WebhookURL: server.URL})
		require.NoError(t, err)

		result := patrol.NewResult(testutil.SamplePatrol())
		passed := patrol.TaskResult{Name: "t"}
		_ = passed.Start()
		_ = passed.Complete(patrol.StatusPassed)
		result.Append(passed)
		result.Finish()

		require.NoError(t, n.Notify(context.Background(), result))
		assert.Zero(t, calls)
	})

	t.Run("rejection inside a 200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code": 19001, "msg": "param invalid"}`))
		}))
		defer server.Close()

		n, err := NewLark(patrol.LarkOptions{Enabled: true, WebhookURL: server.URL})
		require.NoError(t, err)

		err = n.Notify(context.Background(), testutil.SampleResult())
		assert.ErrorIs(t, err, ErrWebhookRejected)
		assert.Contains(t, err.Error(), "19001")
	})

	t.Run("non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		n, err := NewLark(patrol.LarkOptions{Enabled: true, WebhookURL: server.URL})
		require.NoError(t, err)

		err = n.Notify(context.Background(), testutil.SampleResult())
		assert.ErrorIs(t, err, ErrWebhookRejected)
	})
}

func TestLarkNotifier_BuildMessage(t *testing.T) {
	t.Run("long agent output is truncated", func(t *testing.T) {
		n, err := NewLark(patrol.LarkOptions{Enabled: true, WebhookURL: "https://open.larksuite.com/hook"})
		require.NoError(t, err)

		result := patrol.NewResult(testutil.SamplePatrol())
		failed := patrol.TaskResult{Name: "Check wifi"}
		_ = failed.Start()
		failed.AgentMessage = strings.Repeat("x", previewLimit+50)
		_ = failed.Complete(patrol.StatusFailed)
		result.Append(failed)
		result.Finish()

		msg := n.buildMessage(result)

		var taskLine string
		for _, line := range msg.Content.Post.ZhCN.Content {
			for _, elem := range line {
				if strings.Contains(elem.Text, "Check wifi") {
					taskLine = elem.Text
				}
			}
		}
		require.NotEmpty(t, taskLine)
		assert.Contains(t, taskLine, strings.Repeat("x", previewLimit)+"...")
		assert.NotContains(t, taskLine, strings.Repeat("x", previewLimit+1))
	})
}

type stubNotifier struct {
	name    string
	enabled bool
	err     error
	calls   int
}

func (s *stubNotifier) Name() string  { return s.name }
func (s *stubNotifier) Enabled() bool { return s.enabled }
func (s *stubNotifier) Notify(ctx context.Context, result *patrol.Result) error {
	s.calls++
	return s.err
}

func TestManager_Notify(t *testing.T) {
	t.Run("disabled channels are skipped", func(t *testing.T) {
		on := &stubNotifier{name: "on", enabled: true}
		off := &stubNotifier{name: "off", enabled: false}

		m := NewManager(logger.NewTestLogger(), on, off)
		require.NoError(t, m.Notify(context.Background(), testutil.SampleResult()))

		assert.Equal(t, 1, on.calls)
		assert.Zero(t, off.calls)
	})

	t.Run("one failing channel does not stop the others", func(t *testing.T) {
		failing := &stubNotifier{name: "failing", enabled: true, err: assert.AnError}
		healthy := &stubNotifier{name: "healthy", enabled: true}

		m := NewManager(logger.NewTestLogger(), failing, healthy)
		err := m.Notify(context.Background(), testutil.SampleResult())

		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, healthy.calls)
	})
}
