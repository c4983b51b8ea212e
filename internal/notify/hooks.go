package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/config"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/event"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
)

// HookPayload is the agent-hook gateway request body.
type HookPayload struct {
	Message    string `json:"message"`
	Name       string `json:"name"`
	SessionKey string `json:"sessionKey"`
	Deliver    bool   `json:"deliver"`
	Channel    string `json:"channel,omitempty"`
	To         string `json:"to,omitempty"`
	AgentID    string `json:"agentId,omitempty"`
}

// HooksClient forwards inbound SMS to the OpenClaw agent-hook gateway with
// bearer-token auth. Success is any 2xx status.
type HooksClient struct {
	gatewayURL string
	path       string
	token      string
	name       string
	channel    string
	to         string
	agentID    string
	client     *http.Client
}

// NewHooksClient builds a hooks client from static configuration.
func NewHooksClient(cfg *config.Config) *HooksClient {
	return &HooksClient{
		gatewayURL: cfg.Hooks.GatewayURL,
		path:       cfg.Hooks.Path,
		token:      cfg.Hooks.Token,
		name:       cfg.Hooks.Name,
		channel:    cfg.Hooks.Channel,
		to:         cfg.Hooks.To,
		agentID:    cfg.Hooks.AgentID,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether a hooks token is present.
func (h *HooksClient) Configured() bool {
	return h != nil && h.token != ""
}

func (h *HooksClient) url() string {
	return strings.TrimRight(h.gatewayURL, "/") + "/" + strings.TrimLeft(h.path, "/")
}

// BuildPayload assembles the hook payload for a normalized message.
// Optional routing fields come from static configuration, never from the
// payload itself.
func (h *HooksClient) BuildPayload(msg models.Message, lineDisplay string) HookPayload {
	return HookPayload{
		Message:    FormatHookMessage(msg, lineDisplay),
		Name:       h.name,
		SessionKey: event.SessionKey(msg),
		Deliver:    true,
		Channel:    h.channel,
		To:         h.to,
		AgentID:    h.agentID,
	}
}

// Forward sends a normalized inbound SMS to the hooks gateway. The status
// string is a short reason usable in responses and logs.
func (h *HooksClient) Forward(ctx context.Context, msg models.Message, lineDisplay string) (bool, string) {
	if !h.Configured() {
		return false, "token_missing"
	}

	body, err := json.Marshal(h.BuildPayload(msg, lineDisplay))
	if err != nil {
		return false, "encode_failed"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url(), bytes.NewReader(body))
	if err != nil {
		return false, "request_failed"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		return false, "request_failed"
	}
	defer resp.Body.Close()

	status := fmt.Sprintf("http_%d", resp.StatusCode)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, status
	}
	return false, status
}

// FormatHookMessage builds the hook message text: short metadata lines
// followed by the full body.
func FormatHookMessage(msg models.Message, lineDisplay string) string {
	sender := msg.Sender
	if sender == "" {
		sender = "Unknown"
	}
	senderNumber := msg.SenderNumber
	if senderNumber == "" {
		senderNumber = "Unknown"
	}

	lines := []string{"Dialpad inbound SMS"}
	if lineDisplay != "" {
		lines = append(lines, "To Line: "+lineDisplay)
	} else if msg.RecipientNumber != "" {
		lines = append(lines, "To: "+msg.RecipientNumber)
	}
	lines = append(lines, fmt.Sprintf("From: %s (%s)", sender, senderNumber))
	if msg.Timestamp != "" {
		lines = append(lines, "Timestamp: "+msg.Timestamp)
	}
	if msg.MessageID != "" {
		lines = append(lines, "Message ID: "+msg.MessageID)
	}
	lines = append(lines, "", msg.Body)
	return strings.Join(lines, "\n")
}
