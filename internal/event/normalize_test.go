package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
)

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   \t\n"))
	assert.False(t, IsBlank("hi"))
	assert.False(t, IsBlank(" hi "))
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawEvent
		want string
	}{
		{"text preferred", models.RawEvent{"text": "hello", "text_content": "other"}, "hello"},
		{"fallback to text_content", models.RawEvent{"text": "  ", "text_content": "alias"}, "alias"},
		{"both blank", models.RawEvent{"text": "", "text_content": " "}, ""},
		{"missing entirely", models.RawEvent{}, ""},
		{"numeric text stringifies", models.RawEvent{"text": float64(42)}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageText(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := models.RawEvent{
		"from_number":     "+14155550111",
		"to_number":       []interface{}{"+14155201316"},
		"text":            "hello there",
		"direction":       "inbound",
		"event_timestamp": float64(1700000000000),
		"conversation_id": "conv-1",
		"message_id":      "msg-1",
	}

	msg := Normalize(raw, "")
	assert.Equal(t, "+14155550111", msg.Sender)
	assert.Equal(t, "+14155550111", msg.SenderNumber)
	assert.Equal(t, "+14155201316", msg.RecipientNumber)
	assert.Equal(t, "hello there", msg.Body)
	assert.Equal(t, "1700000000000", msg.Timestamp)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, "msg-1", msg.MessageID)
	assert.Equal(t, "inbound", msg.Direction)
}

func TestNormalizeContactName(t *testing.T) {
	raw := models.RawEvent{"from_number": "+14155550111", "direction": "inbound"}

	msg := Normalize(raw, "Jane Doe")
	assert.Equal(t, "Jane Doe", msg.Sender)

	// Embedded contact name used when no external name is supplied.
	raw["contact"] = map[string]interface{}{"name": "John Roe"}
	msg = Normalize(raw, "")
	assert.Equal(t, "John Roe", msg.Sender)
}

func TestNormalizeFallbacks(t *testing.T) {
	msg := Normalize(models.RawEvent{}, "")
	assert.Equal(t, "Unknown", msg.Sender)
	assert.Equal(t, "", msg.Body)
	assert.Equal(t, "unknown", msg.Direction)
	assert.Equal(t, "", msg.Timestamp)

	// Empty recipient list reduces to empty, never panics.
	msg = Normalize(models.RawEvent{"to_number": []interface{}{}}, "")
	assert.Equal(t, "", msg.RecipientNumber)

	// message_id falls back to id.
	msg = Normalize(models.RawEvent{"id": "evt-9"}, "")
	assert.Equal(t, "evt-9", msg.MessageID)
}

func TestNormalizeTimestampAliasPriority(t *testing.T) {
	raw := models.RawEvent{
		"created_date": "2024-01-01T00:00:00Z",
		"timestamp":    "primary",
	}
	assert.Equal(t, "primary", Normalize(raw, "").Timestamp)

	raw = models.RawEvent{"created_date": "2024-01-01T00:00:00Z"}
	assert.Equal(t, "2024-01-01T00:00:00Z", Normalize(raw, "").Timestamp)

	// A blank alias value falls through to the next one.
	raw = models.RawEvent{
		"timestamp":       "",
		"event_timestamp": "2024-01-01T00:00:00Z",
	}
	assert.Equal(t, "2024-01-01T00:00:00Z", Normalize(raw, "").Timestamp)
}

func TestSessionKey(t *testing.T) {
	tests := []struct {
		name string
		msg  models.Message
		want string
	}{
		{
			"conversation id preferred",
			models.Message{ConversationID: "c1", MessageID: "m1", SenderNumber: "+14155550111"},
			"hook:dialpad:sms:c1",
		},
		{
			"message id next",
			models.Message{MessageID: "m1", SenderNumber: "+14155550111"},
			"hook:dialpad:sms:m1",
		},
		{
			"normalized phone next",
			models.Message{SenderNumber: "+1 (415) 555-0111"},
			"hook:dialpad:sms:4155550111",
		},
		{
			"unknown bucket",
			models.Message{},
			"hook:dialpad:sms:unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionKey(tt.msg))
		})
	}
}
