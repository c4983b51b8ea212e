package event

import (
	"strings"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/config"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
)

// eventTypeFields are the payload keys whose values are concatenated when
// hunting for textual missed-call hints.
var eventTypeFields = []string{"event_type", "event", "type", "subscription_type", "topic"}

// Classifier assigns the four-way notification class to inbound payloads.
// The missed-call keyword sets are configuration, not hard-coded: provider
// field naming drifts, and tuning them is a behavior change.
type Classifier struct {
	missedStates      map[string]bool
	missedHints       []string
	callContextFields []string
}

// NewClassifier builds a classifier from the configured keyword sets.
func NewClassifier(cfg *config.Config) *Classifier {
	states := make(map[string]bool, len(cfg.Classifier.MissedCallStates))
	for _, state := range cfg.Classifier.MissedCallStates {
		states[strings.ToLower(state)] = true
	}
	return &Classifier{
		missedStates:      states,
		missedHints:       cfg.Classifier.MissedCallHints,
		callContextFields: cfg.Classifier.CallContextFields,
	}
}

// Classify evaluates a payload once. The result is terminal; callers never
// re-classify.
func (c *Classifier) Classify(raw models.RawEvent) models.Classification {
	if !strings.EqualFold(raw.String("direction"), "inbound") {
		return models.ClassNotInbound
	}
	if c.isReliableMissedCall(raw) {
		return models.ClassMissedCall
	}
	if IsBlank(MessageText(raw)) {
		return models.ClassBlankSMS
	}
	return models.ClassSMS
}

// isReliableMissedCall detects missed-call events routed through the SMS
// webhook path. Conservative by requirement: blank text, an explicit
// missed-call signal, call context, and a sender must all be present, so a
// plain blank SMS is never promoted to a call alert.
func (c *Classifier) isReliableMissedCall(raw models.RawEvent) bool {
	if !strings.EqualFold(raw.String("direction"), "inbound") {
		return false
	}
	if !IsBlank(MessageText(raw)) {
		return false
	}

	var parts []string
	for _, field := range eventTypeFields {
		parts = append(parts, strings.ToLower(raw.String(field)))
	}
	eventText := strings.Join(parts, " ")
	callState := strings.ToLower(raw.String("call_state"))

	hasMissedSignal := raw["call_missed"] == true ||
		raw["missed_call"] == true ||
		raw["is_missed_call"] == true ||
		c.missedStates[callState]
	if !hasMissedSignal {
		for _, hint := range c.missedHints {
			if strings.Contains(eventText, hint) {
				hasMissedSignal = true
				break
			}
		}
	}
	if !hasMissedSignal && strings.Contains(eventText, "call") {
		hasMissedSignal = strings.Contains(eventText, "no_answer") || strings.Contains(eventText, "unanswered")
	}
	if !hasMissedSignal {
		return false
	}

	hasCallContext := strings.Contains(eventText, "call")
	if !hasCallContext {
		for _, field := range c.callContextFields {
			if _, ok := raw[field]; ok {
				hasCallContext = true
				break
			}
		}
	}
	if !hasCallContext {
		return false
	}

	fromNumber := models.Stringify(models.FirstValue(raw["from_number"]))
	return !IsBlank(fromNumber)
}
