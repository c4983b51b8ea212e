// Package dialpad talks to the Dialpad REST API: best-effort contact name
// lookup, inbound call listing for the voicemail poller, and the shared
// call-selection ranking used when a caller asks for "the latest call".
package dialpad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

const defaultBaseURL = "https://dialpad.com/api/v2"

// Call is one call record as returned by the API. The field set varies
// between endpoints, so it stays a loose map like webhook payloads do.
type Call map[string]interface{}

// Client is a bearer-authenticated Dialpad API client.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient builds a client for the given API key. An empty baseURL uses
// the production API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (map[string]interface{}, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dialpad API error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("invalid JSON response: %w", err)
		}
	}
	return payload, nil
}

// LookupContact resolves a phone number to a display name. Best effort: a
// missing API key, a failed request, or no match all return "".
func (c *Client) LookupContact(ctx context.Context, phoneNumber string) string {
	if !c.Configured() || phoneNumber == "" {
		return ""
	}

	query := url.Values{}
	query.Set("query", phoneNumber)

	payload, err := c.get(ctx, "/contacts", query)
	if err != nil {
		logger.Warn("Dialpad contact lookup failed", zap.String("number", phoneNumber), zap.Error(err))
		return ""
	}

	items, ok := payload["items"].([]interface{})
	if !ok || len(items) == 0 {
		return ""
	}
	contact, ok := items[0].(map[string]interface{})
	if !ok {
		return ""
	}

	first, _ := contact["first_name"].(string)
	last, _ := contact["last_name"].(string)
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		name = "Known Contact"
	}
	if company, _ := contact["company"].(string); company != "" {
		name = fmt.Sprintf("%s (%s)", name, company)
	}
	if title, _ := contact["job_title"].(string); title != "" {
		name = fmt.Sprintf("%s | %s", title, name)
	}
	return name
}

// envelope keys Dialpad has used for list payloads over time.
var itemListKeys = []string{"items", "calls", "data", "results"}

func extractCallItems(payload map[string]interface{}) []Call {
	for _, key := range itemListKeys {
		list, ok := payload[key].([]interface{})
		if !ok {
			continue
		}
		calls := make([]Call, 0, len(list))
		for _, item := range list {
			if call, ok := item.(map[string]interface{}); ok {
				calls = append(calls, Call(call))
			}
		}
		return calls
	}
	return nil
}

const maxListPages = 20

// ListInboundCalls fetches recent inbound calls, following cursors until a
// page is entirely older than the lookback window or the page cap hits.
func (c *Client) ListInboundCalls(ctx context.Context, lookback time.Duration, now time.Time) ([]Call, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("dialpad API key is not configured")
	}

	nowMs := now.UnixMilli()
	lookbackMs := lookback.Milliseconds()

	var all []Call
	cursor := ""

	for page := 0; page < maxListPages; page++ {
		query := url.Values{}
		query.Set("direction", "inbound")
		query.Set("limit", "50")
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		payload, err := c.get(ctx, "/call", query)
		if err != nil {
			return nil, err
		}

		items := extractCallItems(payload)
		all = append(all, items...)
		if len(items) == 0 {
			break
		}

		if lookbackMs > 0 {
			oldest := int64(-1)
			for _, call := range items {
				if ended, ok := toMillis(call["date_ended"]); ok && (oldest < 0 || ended < oldest) {
					oldest = ended
				}
			}
			if oldest >= 0 && oldest < nowMs-lookbackMs {
				break
			}
		}

		cursor, _ = payload["cursor"].(string)
		if cursor == "" {
			break
		}
	}

	return all, nil
}
