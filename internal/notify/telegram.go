package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends Markdown alerts to a Telegram chat via bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier registers bot token and chat identifier.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetAPIBase overrides the Telegram API host, for tests.
func (n *TelegramNotifier) SetAPIBase(base string) {
	n.apiBase = strings.TrimRight(base, "/")
}

// Configured reports whether both bot token and chat id are present.
func (n *TelegramNotifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// Send posts a Markdown message to the configured chat. Returns an error
// on misconfiguration, transport failure, or a non-200 status; callers
// treat every failure as best-effort.
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	if !n.Configured() {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	payload, err := json.Marshal(map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

// EscapeMarkdown escapes Telegram Markdown special characters before
// untrusted text is interpolated into an alert.
func EscapeMarkdown(text string) string {
	escaped := text
	for _, ch := range []string{"_", "*", "`", "["} {
		escaped = strings.ReplaceAll(escaped, ch, "\\"+ch)
	}
	return escaped
}
