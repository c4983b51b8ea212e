package models

// RawEvent is the webhook payload as received from Dialpad. Field names and
// shapes vary by event family, so it stays a loose map until the normalizer
// projects it into a Message.
type RawEvent map[string]interface{}

// String returns the named field rendered as a string, or "" when absent.
func (e RawEvent) String(key string) string {
	value, ok := e[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return Stringify(value)
}

// First returns the named field reduced to a scalar: list-shaped values
// collapse to their first element, empty lists to nil.
func (e RawEvent) First(key string) interface{} {
	return FirstValue(e[key])
}

// FirstValue returns the first item for list-like values, otherwise the
// value unchanged. Empty lists yield nil.
func FirstValue(value interface{}) interface{} {
	if list, ok := value.([]interface{}); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return value
}

// Classification is the four-way decision for an inbound webhook payload.
// Computed once per event and never revised.
type Classification string

const (
	ClassSMS        Classification = "sms"
	ClassMissedCall Classification = "missed_call"
	ClassBlankSMS   Classification = "blank_sms"
	ClassNotInbound Classification = "not_inbound"
)

// Message is the canonical projection of a RawEvent. Body is always a
// string, never null; Timestamp is an opaque passthrough for display.
type Message struct {
	Sender          string `json:"sender"`
	SenderNumber    string `json:"sender_number"`
	RecipientNumber string `json:"recipient_number"`
	Body            string `json:"text"`
	Timestamp       string `json:"timestamp,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
	MessageID       string `json:"message_id,omitempty"`
	Direction       string `json:"direction"`
}

// NotificationOutcome records the result of one channel send attempt.
// Outcomes are independent; a failed channel never blocks another.
type NotificationOutcome struct {
	Channel   string `json:"channel"`
	Attempted bool   `json:"attempted"`
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// StoredRecord is what the message store hands back for an accepted event.
type StoredRecord struct {
	RecordID    string `json:"record_id"`
	MessageID   string `json:"message_id"`
	ContactName string `json:"contact_name,omitempty"`
}

// StoreResult is the store(event) contract shared by the webhook receiver
// and the /store ingress. Duplicate marks a re-delivery of an already
// stored event: accepted and acknowledged, but never re-notified.
type StoreResult struct {
	Stored    bool          `json:"stored"`
	Duplicate bool          `json:"duplicate,omitempty"`
	Error     string        `json:"error,omitempty"`
	Record    *StoredRecord `json:"message,omitempty"`
}
