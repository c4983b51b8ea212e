package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/config"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/dialpad"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/filter"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/notify"
)

type fakeLister struct {
	calls []dialpad.Call
	err   error
}

func (f *fakeLister) ListInboundCalls(ctx context.Context, lookback time.Duration, now time.Time) ([]dialpad.Call, error) {
	return f.calls, f.err
}

// pollFixture wires a voicemail service against a controllable Telegram
// server. telegramStatus can be swapped between polls.
type pollFixture struct {
	service       *VoicemailService
	telegramTexts *[]string
	status        *atomic.Int64
}

func newPollFixture(t *testing.T, lister *fakeLister, now time.Time) pollFixture {
	t.Helper()

	var texts []string
	var status atomic.Int64
	status.Store(http.StatusOK)

	telegramServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		texts = append(texts, body["text"])
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(telegramServer.Close)

	telegram := notify.NewTelegramNotifier("tg-token", "chat-1")
	telegram.SetAPIBase(telegramServer.URL)

	cfg := config.DefaultConfig()
	router := notify.NewRouter(
		telegram,
		notify.NewHooksClient(cfg),
		filter.New(false),
		notify.NewLineDirectory(cfg.NormalizedLineNames()),
	)

	service := NewVoicemailService(lister, newTestLedger(t), router, 2*time.Hour)
	service.now = func() time.Time { return now }

	return pollFixture{service: service, telegramTexts: &texts, status: &status}
}

func voicemailCall(id string, endedAt time.Time) dialpad.Call {
	return dialpad.Call{
		"call_id":            id,
		"external_number":    "+14155550111",
		"internal_number":    "+14155201316",
		"voicemail_link":     "https://example.com/" + id + ".mp3",
		"date_ended":         float64(endedAt.UnixMilli()),
		"total_duration":     float64(42000),
		"transcription_text": "call me back",
		"contact":            map[string]interface{}{"name": "Jane Doe"},
	}
}

func TestPollNotifiesNewVoicemails(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	lister := &fakeLister{calls: []dialpad.Call{
		voicemailCall("vm-1", now.Add(-30*time.Minute)),
		voicemailCall("vm-2", now.Add(-45*time.Minute)),
		// No voicemail artifact: listed but never a candidate.
		{"call_id": "plain", "date_ended": float64(now.Add(-10 * time.Minute).UnixMilli())},
		// Too old for the window.
		voicemailCall("vm-stale", now.Add(-5*time.Hour)),
	}}
	fixture := newPollFixture(t, lister, now)

	result, err := fixture.service.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Notified)

	require.Len(t, *fixture.telegramTexts, 2)
	alert := (*fixture.telegramTexts)[0]
	assert.Contains(t, alert, "📬 *New Voicemail*")
	assert.Contains(t, alert, "*Jane Doe* (`+14155550111`)")
	assert.Contains(t, alert, "Sales (415) 520-1316")
	assert.Contains(t, alert, "*Duration:* 42s")
	assert.Contains(t, alert, "call me back")
}

func TestPollSkipsSeenVoicemails(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	lister := &fakeLister{calls: []dialpad.Call{voicemailCall("vm-1", now.Add(-30 * time.Minute))}}
	fixture := newPollFixture(t, lister, now)

	first, err := fixture.service.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Notified)

	// The second cycle finds the same call but never re-notifies.
	second, err := fixture.service.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Found)
	assert.Equal(t, 0, second.Notified)
	assert.Len(t, *fixture.telegramTexts, 1)
}

func TestPollRetriesAfterFailedNotification(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	lister := &fakeLister{calls: []dialpad.Call{voicemailCall("vm-1", now.Add(-30 * time.Minute))}}
	fixture := newPollFixture(t, lister, now)

	// A failed send must leave the ledger unmarked.
	fixture.status.Store(http.StatusBadGateway)
	result, err := fixture.service.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 0, result.Notified)

	// Next cycle picks the same voicemail up again.
	fixture.status.Store(http.StatusOK)
	result, err = fixture.service.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Notified)
}

func TestPollSkipsMissingCallID(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	call := voicemailCall("", now.Add(-30*time.Minute))
	delete(call, "call_id")
	lister := &fakeLister{calls: []dialpad.Call{call}}
	fixture := newPollFixture(t, lister, now)

	result, err := fixture.service.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 0, result.Notified)
}

func TestPollListerError(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	lister := &fakeLister{err: errors.New("api down")}
	fixture := newPollFixture(t, lister, now)

	_, err := fixture.service.Poll(context.Background())
	assert.Error(t, err)
}
