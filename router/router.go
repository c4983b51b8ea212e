// Package router owns the HTTP surface of the webhook relay. Every
// webhook endpoint acknowledges with 200 once storage (where applicable)
// succeeds; downstream notification failures only show up in the response
// body and logs, never in the status code.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/notify"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/services"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/middleware"
)

// WebhookService defines the pipeline interface the router needs.
type WebhookService interface {
	ProcessEvent(ctx context.Context, raw models.RawEvent) (*services.WebhookResult, error)
	StoreOnly(raw models.RawEvent) (*models.StoreResult, error)
}

// ContactResolver resolves caller numbers for the call/voicemail webhooks.
type ContactResolver interface {
	LookupContact(ctx context.Context, phoneNumber string) string
}

type Router struct {
	engine   *gin.Engine
	service  WebhookService
	notifier *notify.Router
	contacts ContactResolver
}

// NewRouter configures all routes. secret enables auth verification on the
// main webhook when non-empty; contacts may be nil.
func NewRouter(service WebhookService, notifier *notify.Router, contacts ContactResolver, secret string) *Router {
	if service == nil {
		panic("webhook service cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}

	r := &Router{
		engine:   gin.New(),
		service:  service,
		notifier: notifier,
		contacts: contacts,
	}
	r.engine.Use(gin.Recovery())

	r.engine.GET("/health", r.handleHealth)
	r.engine.NoRoute(r.handleNotFound)

	r.engine.POST("/webhook/dialpad", middleware.WebhookAuth(secret), r.handleWebhook)
	r.engine.POST("/webhook/dialpad-call", middleware.BodyLimit(), r.handleCallWebhook)
	r.engine.POST("/webhook/dialpad-voicemail", middleware.BodyLimit(), r.handleVoicemailWebhook)
	r.engine.POST("/store", middleware.BodyLimit(), r.handleStore)

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

// handleWebhook is the main Dialpad webhook. Auth ran in middleware; the
// verified raw body is decoded here so stored bytes match what was signed.
func (r *Router) handleWebhook(c *gin.Context) {
	rawBody, _ := c.Get(middleware.RawBodyKey)
	body, _ := rawBody.([]byte)

	raw, err := decodeEvent(body)
	if err != nil {
		logger.Warn("Invalid webhook JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	result, err := r.service.ProcessEvent(c.Request.Context(), raw)
	if err != nil {
		logger.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failed"})
		return
	}

	authMethod := c.GetString(middleware.AuthMethodKey)
	logger.Info("Webhook processed",
		zap.String("direction", raw.String("direction")),
		zap.String("classification", string(result.Class)),
		zap.String("auth", authMethod),
		zap.Bool("hook_forwarded", result.HookForwarded),
	)

	response := gin.H{"status": "ok", "stored": true}
	if result.Inbound {
		response["hook_forwarded"] = result.HookForwarded
		response["hook_status"] = result.HookStatus
	} else {
		response["hook_forwarded"] = nil
		response["hook_status"] = nil
	}
	c.JSON(http.StatusOK, response)
}

// handleStore is the storage-only ingress used by the OpenClaw plugin.
func (r *Router) handleStore(c *gin.Context) {
	raw, ok := r.bindEvent(c)
	if !ok {
		return
	}

	result, err := r.service.StoreOnly(raw)
	if err != nil {
		logger.Error("Store endpoint failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}

	status := http.StatusOK
	if !result.Stored {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// handleCallWebhook handles missed-call push notifications. No storage is
// involved, so the response is always 200 regardless of send outcome.
func (r *Router) handleCallWebhook(c *gin.Context) {
	raw, ok := r.bindEvent(c)
	if !ok {
		return
	}

	direction := raw.String("call_direction")
	if direction == "" {
		direction = raw.String("direction")
	}
	callState := strings.ToLower(raw.String("call_state"))
	duration := durationSeconds(raw, "duration", "call_duration")

	shouldNotify := strings.EqualFold(direction, "inbound") &&
		(raw["call_missed"] == true || duration == 0 || callState == "missed")

	response := gin.H{"status": "ok", "missed_call": shouldNotify, "telegram_sent": nil}
	if !shouldNotify {
		logger.Info("Call event ignored (not inbound missed call)")
		c.JSON(http.StatusOK, response)
		return
	}

	fromNumber := models.Stringify(models.FirstValue(raw["from_number"]))
	msg := models.Message{
		Sender:          r.lookupContact(c.Request.Context(), fromNumber),
		SenderNumber:    fromNumber,
		RecipientNumber: models.Stringify(raw.First("to_number")),
	}

	outcomes := r.notifier.Notify(c.Request.Context(), models.ClassMissedCall, msg)
	sent := len(outcomes) > 0 && outcomes[0].Delivered
	logger.Info("Missed call webhook",
		zap.String("from", fromNumber),
		zap.Bool("telegram_sent", sent),
	)

	response["telegram_sent"] = sent
	c.JSON(http.StatusOK, response)
}

// handleVoicemailWebhook handles voicemail push notifications.
func (r *Router) handleVoicemailWebhook(c *gin.Context) {
	raw, ok := r.bindEvent(c)
	if !ok {
		return
	}

	fromNumber := models.Stringify(models.FirstValue(raw["from_number"]))
	if fromNumber == "" {
		fromNumber = "Unknown"
	}
	toNumber := models.Stringify(raw.First("to_number"))

	duration := durationSeconds(raw, "duration", "voicemail_duration")
	transcription := raw.String("voicemail_transcription")
	if transcription == "" {
		transcription = raw.String("transcription")
	}

	var contactName string
	if fromNumber != "Unknown" {
		contactName = r.lookupContact(c.Request.Context(), fromNumber)
	}
	toDisplay := r.notifier.Lines().Display(toNumber)

	text := r.notifier.BuildVoicemailAlert(
		toDisplay, contactName, fromNumber,
		models.Stringify(duration)+"s", transcription,
	)
	sent := r.notifier.SendVoicemailAlert(c.Request.Context(), text)

	logger.Info("Voicemail webhook",
		zap.String("from", fromNumber),
		zap.Bool("telegram_sent", sent),
	)

	c.JSON(http.StatusOK, gin.H{"status": "ok", "voicemail": true, "telegram_sent": sent})
}

func (r *Router) lookupContact(ctx context.Context, fromNumber string) string {
	if r.contacts == nil || fromNumber == "" {
		return ""
	}
	return r.contacts.LookupContact(ctx, fromNumber)
}

// bindEvent reads and decodes the request body as a RawEvent, answering
// the error response itself on failure.
func (r *Router) bindEvent(c *gin.Context) (models.RawEvent, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return nil, false
	}

	raw, err := decodeEvent(body)
	if err != nil {
		logger.Warn("Invalid JSON payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return nil, false
	}
	return raw, true
}

func decodeEvent(body []byte) (models.RawEvent, error) {
	if len(body) == 0 {
		return models.RawEvent{}, nil
	}
	var raw models.RawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = models.RawEvent{}
	}
	return raw, nil
}

func durationSeconds(raw models.RawEvent, keys ...string) int {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case float64:
			return int(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return int(f)
			}
		}
	}
	return 0
}
