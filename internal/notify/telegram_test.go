package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

func init() {
	logger.SetTestMode(true)
}

func TestTelegramConfigured(t *testing.T) {
	assert.True(t, NewTelegramNotifier("token", "chat").Configured())
	assert.False(t, NewTelegramNotifier("", "chat").Configured())
	assert.False(t, NewTelegramNotifier("token", "").Configured())
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewTelegramNotifier("test-token", "chat-1")
	notifier.SetAPIBase(server.URL)

	require.NoError(t, notifier.Send(context.Background(), "hello *world*"))
	assert.Equal(t, "chat-1", got["chat_id"])
	assert.Equal(t, "hello *world*", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegramSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer server.Close()

	notifier := NewTelegramNotifier("test-token", "chat-1")
	notifier.SetAPIBase(server.URL)
	assert.Error(t, notifier.Send(context.Background(), "hello"))
}

func TestTelegramSendUnconfigured(t *testing.T) {
	assert.Error(t, NewTelegramNotifier("", "").Send(context.Background(), "hello"))
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"_under_ *star* `tick` [bracket", "\\_under\\_ \\*star\\* \\`tick\\` \\[bracket"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeMarkdown(tt.in))
	}
}
