package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/db"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/event"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/notify"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

// ContactResolver resolves phone numbers to display names, best effort.
type ContactResolver interface {
	LookupContact(ctx context.Context, phoneNumber string) string
}

// WebhookResult is what the HTTP layer reports back to Dialpad for one
// processed event.
type WebhookResult struct {
	Stored        bool
	Inbound       bool
	AuthMethod    string
	Class         models.Classification
	HookForwarded bool
	HookStatus    string
	Outcomes      []models.NotificationOutcome
}

// WebhookService runs the accepted-event pipeline: store, classify,
// resolve contact, filter, notify. Storage is the only step whose failure
// propagates; everything after it degrades gracefully.
type WebhookService struct {
	store      db.Store
	ledger     *db.Ledger
	classifier *event.Classifier
	router     *notify.Router
	contacts   ContactResolver
}

// NewWebhookService wires the pipeline. ledger may be nil when the seen
// ledger is not configured; contacts may be nil when no API key is set.
func NewWebhookService(store db.Store, ledger *db.Ledger, classifier *event.Classifier, router *notify.Router, contacts ContactResolver) *WebhookService {
	return &WebhookService{
		store:      store,
		ledger:     ledger,
		classifier: classifier,
		router:     router,
		contacts:   contacts,
	}
}

// StoreOnly persists an event without notification. Used by the /store
// ingress called from the OpenClaw plugin.
func (s *WebhookService) StoreOnly(raw models.RawEvent) (*models.StoreResult, error) {
	return s.store.StoreEvent(raw)
}

// ProcessEvent handles one authenticated webhook payload. The returned
// error means storage failed and the caller must answer non-2xx; all
// notification failures are folded into the result instead.
func (s *WebhookService) ProcessEvent(ctx context.Context, raw models.RawEvent) (*WebhookResult, error) {
	result, err := s.store.StoreEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}
	if !result.Stored {
		return nil, fmt.Errorf("storage failed: %s", result.Error)
	}

	// Webhook path: storage success anchors the seen ledger, since the
	// provider's retry loop is the only recovery mechanism here.
	if s.ledger != nil && result.Record != nil && result.Record.MessageID != "" {
		if err := s.ledger.MarkSeen(result.Record.MessageID); err != nil {
			logger.Warn("Failed to mark event seen", zap.Error(err))
		}
	}

	out := &WebhookResult{Stored: true}
	if !strings.EqualFold(raw.String("direction"), "inbound") {
		return out, nil
	}
	out.Inbound = true

	out.Class = s.classifier.Classify(raw)

	// A re-delivered event was already notified (or deliberately withheld)
	// the first time around; acknowledge it without another send.
	if result.Duplicate {
		logger.Info("Duplicate delivery acknowledged without notification",
			zap.String("message_id", raw.String("message_id")))
		out.HookStatus = "duplicate_delivery"
		return out, nil
	}

	contactName := s.resolveContact(ctx, raw, result)
	msg := event.Normalize(raw, contactName)

	out.Outcomes = s.router.Notify(ctx, out.Class, msg)
	for _, outcome := range out.Outcomes {
		if outcome.Channel == notify.ChannelHooks {
			out.HookForwarded = outcome.Delivered
			out.HookStatus = outcome.Reason
		}
	}
	if out.Class == models.ClassMissedCall {
		out.HookStatus = "filtered_missed_call"
	}

	return out, nil
}

// resolveContact tries the external lookup first, then the cached name on
// the stored record. A successful lookup is cached back onto the record.
func (s *WebhookService) resolveContact(ctx context.Context, raw models.RawEvent, result *models.StoreResult) string {
	fromNumber := models.Stringify(models.FirstValue(raw["from_number"]))
	if fromNumber == "" {
		return ""
	}

	var name string
	if s.contacts != nil {
		name = s.contacts.LookupContact(ctx, fromNumber)
	}
	if name != "" {
		if result.Record != nil {
			if err := s.store.CacheContactName(result.Record.RecordID, name); err != nil {
				logger.Warn("Failed to cache contact name", zap.Error(err))
			}
		}
		return name
	}

	if result.Record != nil && result.Record.ContactName != "" && result.Record.ContactName != "Unknown" {
		return result.Record.ContactName
	}
	return ""
}
