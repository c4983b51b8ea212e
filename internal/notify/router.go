// Package notify builds per-channel alert messages and delivers them.
// Every channel send is independent and best-effort: failures are logged
// and recorded in outcomes, never raised past the router, and never affect
// the webhook acknowledgement.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/filter"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

// Channel identifiers used in outcomes and logs.
const (
	ChannelTelegram = "telegram"
	ChannelHooks    = "openclaw_hooks"
)

const smsPreviewLimit = 200

// Router fans notifications out to the configured channels based on the
// event classification.
type Router struct {
	telegram *TelegramNotifier
	hooks    *HooksClient
	filter   filter.Filter
	lines    *LineDirectory
	now      func() time.Time
}

// NewRouter wires the router. Any channel may be unconfigured; sends to it
// then fail soft with a reason instead of being skipped silently.
func NewRouter(telegram *TelegramNotifier, hooks *HooksClient, contentFilter filter.Filter, lines *LineDirectory) *Router {
	return &Router{
		telegram: telegram,
		hooks:    hooks,
		filter:   contentFilter,
		lines:    lines,
		now:      time.Now,
	}
}

// Notify delivers the notifications appropriate for one classified event
// and reports one outcome per considered channel.
func (r *Router) Notify(ctx context.Context, class models.Classification, msg models.Message) []models.NotificationOutcome {
	switch class {
	case models.ClassNotInbound:
		return nil
	case models.ClassBlankSMS:
		return []models.NotificationOutcome{
			{Channel: ChannelHooks, Attempted: false, Delivered: false, Reason: "filtered_blank_sms"},
		}
	case models.ClassMissedCall:
		return []models.NotificationOutcome{r.sendMissedCall(ctx, msg)}
	case models.ClassSMS:
		return r.sendSMS(ctx, msg)
	default:
		return nil
	}
}

func (r *Router) sendMissedCall(ctx context.Context, msg models.Message) models.NotificationOutcome {
	text := r.BuildMissedCallAlert(msg)
	outcome := models.NotificationOutcome{Channel: ChannelTelegram, Attempted: true}
	if err := r.telegram.Send(ctx, text); err != nil {
		logger.Warn("Missed-call alert failed", zap.Error(err))
		outcome.Reason = "send_failed"
		return outcome
	}
	outcome.Delivered = true
	outcome.Reason = "sent"
	return outcome
}

func (r *Router) sendSMS(ctx context.Context, msg models.Message) []models.NotificationOutcome {
	if r.filter.IsSensitive(msg.Body, msg.Sender, msg.SenderNumber) {
		logger.Info("Sensitive message filtered from notification",
			zap.String("sender_number", msg.SenderNumber))
		return []models.NotificationOutcome{
			{Channel: ChannelTelegram, Attempted: false, Delivered: false, Reason: "filtered_sensitive"},
			{Channel: ChannelHooks, Attempted: false, Delivered: false, Reason: "filtered_sensitive"},
		}
	}

	lineDisplay := r.lines.Display(msg.RecipientNumber)
	outcomes := make([]models.NotificationOutcome, 0, 2)

	tg := models.NotificationOutcome{Channel: ChannelTelegram, Attempted: true}
	if err := r.telegram.Send(ctx, r.BuildSMSAlert(msg, lineDisplay)); err != nil {
		logger.Warn("Telegram SMS alert failed", zap.Error(err))
		tg.Reason = "send_failed"
	} else {
		tg.Delivered = true
		tg.Reason = "sent"
	}
	outcomes = append(outcomes, tg)

	hook := models.NotificationOutcome{Channel: ChannelHooks, Attempted: true}
	delivered, status := r.hooks.Forward(ctx, msg, lineDisplay)
	hook.Delivered = delivered
	hook.Reason = status
	if !delivered {
		logger.Warn("Hook forwarding failed", zap.String("status", status))
	}
	outcomes = append(outcomes, hook)

	return outcomes
}

// BuildSMSAlert renders the Telegram alert for an inbound SMS. Untrusted
// text is Markdown-escaped and the body preview truncated.
func (r *Router) BuildSMSAlert(msg models.Message, lineDisplay string) string {
	preview := msg.Body
	if len(preview) > smsPreviewLimit {
		preview = preview[:smsPreviewLimit] + "..."
	}

	toDisplay := lineDisplay
	if toDisplay == "" {
		toDisplay = msg.RecipientNumber
	}
	if toDisplay == "" {
		toDisplay = "Unknown"
	}

	text := fmt.Sprintf(
		"💬 *New SMS*\n*To:* %s\n*From:* %s\n\n%s",
		EscapeMarkdown(toDisplay),
		fromDisplay(msg.Sender, msg.SenderNumber),
		EscapeMarkdown(preview),
	)
	return text
}

// BuildMissedCallAlert renders the Telegram alert for a missed call.
func (r *Router) BuildMissedCallAlert(msg models.Message) string {
	toDisplay := r.lines.Display(msg.RecipientNumber)
	if toDisplay == "" {
		toDisplay = "Unknown"
	}

	timeDisplay := r.now().Format("3:04 PM")

	return fmt.Sprintf(
		"📞 *Missed Call*\n*To:* %s\n*From:* %s\n*Time:* %s",
		EscapeMarkdown(toDisplay),
		missedCallFrom(msg),
		timeDisplay,
	)
}

// BuildVoicemailAlert renders the Telegram alert shared by the voicemail
// webhook and the poller.
func (r *Router) BuildVoicemailAlert(toDisplay, contactName, fromNumber, duration, transcription string) string {
	if toDisplay == "" {
		toDisplay = "Unknown"
	}

	var from string
	switch {
	case contactName != "":
		from = fmt.Sprintf("*%s* (`%s`)", EscapeMarkdown(contactName), EscapeMarkdown(fromNumber))
	case fromNumber == "" || fromNumber == "Unknown":
		from = "Unknown"
	default:
		from = fmt.Sprintf("`%s`", EscapeMarkdown(fromNumber))
	}

	text := fmt.Sprintf(
		"📬 *New Voicemail*\n*To:* %s\n*From:* %s\n*Duration:* %s",
		EscapeMarkdown(toDisplay), from, duration,
	)
	if transcription != "" {
		text += fmt.Sprintf("\n\n*Transcription:*\n_\"%s\"_", EscapeMarkdown(transcription))
	}
	return text
}

// SendVoicemailAlert delivers a voicemail alert to Telegram.
func (r *Router) SendVoicemailAlert(ctx context.Context, text string) bool {
	if err := r.telegram.Send(ctx, text); err != nil {
		logger.Warn("Voicemail alert failed", zap.Error(err))
		return false
	}
	return true
}

// Lines exposes the line directory for handlers that build display text.
func (r *Router) Lines() *LineDirectory {
	return r.lines
}

func fromDisplay(sender, senderNumber string) string {
	hasName := sender != "" && sender != "Unknown" && sender != senderNumber
	switch {
	case hasName && senderNumber != "":
		return fmt.Sprintf("*%s* (`%s`)", EscapeMarkdown(sender), EscapeMarkdown(senderNumber))
	case hasName:
		return fmt.Sprintf("*%s*", EscapeMarkdown(sender))
	case senderNumber != "":
		return fmt.Sprintf("`%s`", EscapeMarkdown(senderNumber))
	default:
		return "Unknown"
	}
}

func missedCallFrom(msg models.Message) string {
	return fromDisplay(msg.Sender, msg.SenderNumber)
}
