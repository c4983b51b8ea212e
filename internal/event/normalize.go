// Package event turns raw Dialpad webhook payloads into the canonical
// message model and classifies them for notification routing. Nothing
// downstream of this package branches on payload shape.
package event

import (
	"fmt"
	"strings"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/phone"
)

// timestampAliases in priority order. The first non-empty value wins; the
// value is passed through for display, never parsed.
var timestampAliases = []string{"timestamp", "event_timestamp", "created_date", "date_created"}

// IsBlank reports whether text is empty after trimming. This is the single
// blank definition shared by the classifier and the sensitive filter.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// MessageText extracts the SMS body from a payload. Prefers "text", falls
// back to the "text_content" alias, and always yields a string.
func MessageText(raw models.RawEvent) string {
	text := raw.String("text")
	if !IsBlank(text) {
		return text
	}
	alias := raw.String("text_content")
	if !IsBlank(alias) {
		return alias
	}
	if text != "" {
		return text
	}
	return alias
}

// Normalize projects a raw payload into the canonical message. contactName
// is an optional externally resolved display name; when empty the sender
// falls back to the raw number and finally to "Unknown".
func Normalize(raw models.RawEvent, contactName string) models.Message {
	senderNumber := models.Stringify(models.FirstValue(raw["from_number"]))
	recipientNumber := models.Stringify(raw.First("to_number"))

	var timestamp string
	for _, alias := range timestampAliases {
		if value := models.Stringify(raw[alias]); value != "" {
			timestamp = value
			break
		}
	}

	messageID := raw.String("message_id")
	if messageID == "" {
		messageID = raw.String("id")
	}

	direction := raw.String("direction")
	if direction == "" {
		direction = "unknown"
	}

	sender := contactName
	if sender == "" {
		if contact, ok := raw["contact"].(map[string]interface{}); ok {
			sender = models.Stringify(contact["name"])
		}
	}
	if sender == "" {
		sender = senderNumber
	}
	if sender == "" {
		sender = "Unknown"
	}

	return models.Message{
		Sender:          sender,
		SenderNumber:    senderNumber,
		RecipientNumber: recipientNumber,
		Body:            MessageText(raw),
		Timestamp:       timestamp,
		ConversationID:  raw.String("conversation_id"),
		MessageID:       messageID,
		Direction:       direction,
	}
}

// SessionKey derives the stable hook grouping key for a message. Falls
// through conversation id, message id, and normalized sender number; events
// with no identifiers at all collapse into one "unknown" bucket, which is
// an accepted limitation.
func SessionKey(msg models.Message) string {
	candidate := msg.ConversationID
	if candidate == "" {
		candidate = msg.MessageID
	}
	if candidate == "" {
		candidate = phone.Normalize(msg.SenderNumber)
	}
	if candidate == "" {
		candidate = "unknown"
	}
	return fmt.Sprintf("hook:dialpad:sms:%s", candidate)
}
