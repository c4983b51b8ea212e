package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/db"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/dialpad"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/notify"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

// CallLister fetches recent inbound calls from the telephony provider.
type CallLister interface {
	ListInboundCalls(ctx context.Context, lookback time.Duration, now time.Time) ([]dialpad.Call, error)
}

// PollResult summarizes one poll cycle.
type PollResult struct {
	Found    int
	Notified int
}

// VoicemailService discovers voicemails by periodically listing recent
// inbound calls. Unlike the webhook path, the ledger is marked only after
// a successful notification: a failed send leaves the event unmarked so
// the next poll cycle retries it.
type VoicemailService struct {
	calls    CallLister
	ledger   *db.Ledger
	router   *notify.Router
	lookback time.Duration
	now      func() time.Time
}

// NewVoicemailService wires the polling job.
func NewVoicemailService(calls CallLister, ledger *db.Ledger, router *notify.Router, lookback time.Duration) *VoicemailService {
	return &VoicemailService{
		calls:    calls,
		ledger:   ledger,
		router:   router,
		lookback: lookback,
		now:      time.Now,
	}
}

// Poll runs one cycle: list calls, keep fresh voicemails, skip seen ones,
// notify the rest. API failures return an error with zero counts; per-call
// failures only skip that call.
func (s *VoicemailService) Poll(ctx context.Context) (PollResult, error) {
	now := s.now()

	calls, err := s.calls.ListInboundCalls(ctx, s.lookback, now)
	if err != nil {
		return PollResult{}, err
	}

	var voicemails []dialpad.Call
	for _, call := range calls {
		if dialpad.HasVoicemail(call) && dialpad.WithinLookback(call, s.lookback, now) {
			voicemails = append(voicemails, call)
		}
	}

	result := PollResult{Found: len(voicemails)}

	for _, call := range voicemails {
		callID := dialpad.CallID(call)
		if callID == "" {
			logger.Warn("Skipping voicemail with missing call_id")
			continue
		}

		seen, err := s.ledger.HasSeen(callID)
		if err != nil {
			logger.Error("Ledger lookup failed", zap.String("call_id", callID), zap.Error(err))
			continue
		}
		if seen {
			continue
		}

		text := s.buildAlert(call)
		if !s.router.SendVoicemailAlert(ctx, text) {
			continue
		}

		if err := s.ledger.MarkSeen(callID); err != nil {
			logger.Error("Failed to mark voicemail seen", zap.String("call_id", callID), zap.Error(err))
			continue
		}
		result.Notified++
	}

	return result, nil
}

func (s *VoicemailService) buildAlert(call dialpad.Call) string {
	fromNumber := callString(call, "external_number")
	if fromNumber == "" {
		fromNumber = "Unknown"
	}

	toDisplay := s.router.Lines().Display(callString(call, "internal_number"))
	if toDisplay == "" {
		toDisplay = callString(call, "internal_number")
	}

	var contactName string
	if contact, ok := call["contact"].(map[string]interface{}); ok {
		name, _ := contact["name"].(string)
		contactName = dialpad.CleanContactName(name, fromNumber)
	}

	transcription := strings.TrimSpace(callString(call, "transcription_text"))

	return s.router.BuildVoicemailAlert(
		toDisplay, contactName, fromNumber, dialpad.FormatDuration(call), transcription)
}

func callString(call dialpad.Call, key string) string {
	value, _ := call[key].(string)
	return value
}
