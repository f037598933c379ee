package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ModelConfig{
		BaseURL:   server.URL,
		ModelName: "test-model",
		APIKey:    "test-key",
	}, logger.NewTestLogger())
	require.NoError(t, err)

	return client, server
}

func TestNewClient(t *testing.T) {
	t.Run("missing base URL", func(t *testing.T) {
		_, err := NewClient(ModelConfig{}, logger.NewTestLogger())
		assert.ErrorIs(t, err, ErrMissingBaseURL)
	})

	t.Run("trailing slash is trimmed", func(t *testing.T) {
		client, err := NewClient(ModelConfig{BaseURL: "http://agent:8000/v1/"}, logger.NewTestLogger())
		require.NoError(t, err)
		assert.Equal(t, "http://agent:8000/v1", client.baseURL)
	})
}

func TestClient_Run(t *testing.T) {
	t.Run("successful run", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/agent/run", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test-model", body["model"])
			assert.Equal(t, "Open the app", body["instruction"])
			assert.Equal(t, "The app is open", body["success_criteria"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"success":     true,
				"message":     "Opened the app. Test passed",
				"current_app": "com.tencent.mm",
				"steps":       4,
			})
		})

		result, err := client.Run(context.Background(), Request{
			Instruction:     "Open the app",
			SuccessCriteria: "The app is open",
		})
		require.NoError(t, err)

		require.NotNil(t, result.Success)
		assert.True(t, *result.Success)
		assert.Equal(t, "Opened the app. Test passed", result.Message)
		assert.Equal(t, "com.tencent.mm", result.CurrentApp)
		assert.Equal(t, 4, result.Steps)
	})

	t.Run("no explicit verdict", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message": "Did something"}`))
		})

		result, err := client.Run(context.Background(), Request{Instruction: "do"})
		require.NoError(t, err)
		assert.Nil(t, result.Success)
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "device busy", http.StatusConflict)
		})

		_, err := client.Run(context.Background(), Request{Instruction: "do"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "409")
		assert.Contains(t, err.Error(), "device busy")
	})

	t.Run("context deadline surfaces as deadline error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.Run(ctx, Request{Instruction: "do"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unreachable agent", func(t *testing.T) {
		client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, err := client.Run(context.Background(), Request{Instruction: "do"})
		assert.ErrorIs(t, err, ErrAgentUnavailable)
	})
}

func TestClient_Reset(t *testing.T) {
	var called bool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/agent/reset", r.URL.Path)
	})

	require.NoError(t, client.Reset(context.Background()))
	assert.True(t, called)
}

func TestClient_CurrentApp(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/device/current_app", r.URL.Path)
		assert.Equal(t, "emulator-5554", r.URL.Query().Get("device_id"))

		w.Write([]byte(`{"app": "com.android.settings"}`))
	})

	app, err := client.CurrentApp(context.Background(), "emulator-5554")
	require.NoError(t, err)
	assert.Equal(t, "com.android.settings", app)
}

func TestClient_Home(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/device/home", r.URL.Path)

		var body struct {
			DeviceID string `json:"device_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "emulator-5554", body.DeviceID)
	})

	require.NoError(t, client.Home(context.Background(), "emulator-5554"))
}
