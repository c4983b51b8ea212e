package dialpad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCallNewest(t *testing.T) {
	calls := []Call{
		{"call_id": "old", "date_started": float64(1700000000000)},
		{"call_id": "new", "date_started": float64(1700000500000)},
		{"call_id": "mid", "date_started": float64(1700000200000)},
	}

	selected := SelectCall(calls, "")
	require.NotNil(t, selected)
	assert.Equal(t, "new", CallID(selected))
}

func TestSelectCallSubstringFilter(t *testing.T) {
	calls := []Call{
		{"call_id": "a", "external_number": "+14155550111", "date_started": float64(1700000500000)},
		{"call_id": "b", "external_number": "+14155559999", "date_started": float64(1700000900000)},
	}

	// The filter restricts selection even when the match is older.
	selected := SelectCall(calls, "4155550111")
	require.NotNil(t, selected)
	assert.Equal(t, "a", CallID(selected))
}

func TestSelectCallFilterSearchesNestedFields(t *testing.T) {
	calls := []Call{
		{"call_id": "plain", "external_number": "+14155559999"},
		{"call_id": "nested", "contact": map[string]interface{}{
			"name":  "Jane Doe",
			"phone": "+14155550111",
		}},
	}

	selected := SelectCall(calls, "jane")
	require.NotNil(t, selected)
	assert.Equal(t, "nested", CallID(selected))
}

func TestSelectCallNoMatch(t *testing.T) {
	calls := []Call{
		{"call_id": "a", "external_number": "+14155550111"},
	}
	assert.Nil(t, SelectCall(calls, "0000000"))
	assert.Nil(t, SelectCall(nil, ""))
}

func TestSelectCallNoTimestampsDeterministic(t *testing.T) {
	calls := []Call{
		{"call_id": "first"},
		{"call_id": "second"},
		{"call_id": "third"},
	}

	// Without timestamps the earliest-listed call wins, consistently.
	for i := 0; i < 5; i++ {
		selected := SelectCall(calls, "")
		require.NotNil(t, selected)
		assert.Equal(t, "first", CallID(selected))
	}
}

func TestSelectCallStringTimestamps(t *testing.T) {
	calls := []Call{
		{"call_id": "iso", "date_started": "2026-08-30T18:00:00Z"},
		{"call_id": "epoch-string", "date_started": "1790000000"},
	}

	// 1790000000s epoch is later than the 2026 ISO date (~1788s epoch).
	selected := SelectCall(calls, "")
	require.NotNil(t, selected)
	assert.Equal(t, "epoch-string", CallID(selected))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
		ok    bool
	}{
		{"float", float64(1700000000), 1700000000, true},
		{"numeric string", "1700000000", 1700000000, true},
		{"iso z", "2023-11-14T22:13:20Z", 1700000000, true},
		{"iso offset", "2023-11-14T22:13:20+00:00", 1700000000, true},
		{"iso fractional", "2023-11-14T22:13:20.500Z", 1700000000, true},
		{"iso without offset", "2023-11-14T22:13:20", 1700000000, true},
		{"iso fractional without offset", "2023-11-14T22:13:20.500", 1700000000, true},
		{"garbage", "next tuesday", 0, false},
		{"empty", "   ", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestHasVoicemail(t *testing.T) {
	assert.True(t, HasVoicemail(Call{"voicemail_link": "https://example.com/vm.mp3"}))
	assert.True(t, HasVoicemail(Call{"voicemail_recording_id": float64(12345)}))
	assert.False(t, HasVoicemail(Call{"voicemail_link": "   "}))
	assert.False(t, HasVoicemail(Call{"total_duration": float64(9000)}))
}

func TestWithinLookback(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	lookback := time.Hour

	inside := Call{"date_ended": float64(now.Add(-30 * time.Minute).UnixMilli())}
	assert.True(t, WithinLookback(inside, lookback, now))

	outside := Call{"date_ended": float64(now.Add(-2 * time.Hour).UnixMilli())}
	assert.False(t, WithinLookback(outside, lookback, now))

	future := Call{"date_ended": float64(now.Add(time.Minute).UnixMilli())}
	assert.False(t, WithinLookback(future, lookback, now))

	assert.False(t, WithinLookback(Call{}, lookback, now))
}

func TestCallID(t *testing.T) {
	assert.Equal(t, "c-1", CallID(Call{"call_id": "c-1", "id": "ignored"}))
	assert.Equal(t, "c-2", CallID(Call{"id": "c-2"}))
	assert.Equal(t, "12345", CallID(Call{"id": float64(12345)}))
	assert.Equal(t, "", CallID(Call{}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "9s", FormatDuration(Call{"total_duration": float64(9000)}))
	assert.Equal(t, "10s", FormatDuration(Call{"total_duration": float64(9500)}))
	assert.Equal(t, "42s", FormatDuration(Call{"total_duration": "42000"}))
	assert.Equal(t, "0s", FormatDuration(Call{"total_duration": float64(-100)}))
	assert.Equal(t, "0s", FormatDuration(Call{}))
}

func TestCleanContactName(t *testing.T) {
	assert.Equal(t, "Jane Doe", CleanContactName("Jane Doe", "+14155550111"))
	assert.Equal(t, "", CleanContactName("+14155550111", "+14155550111"))
	assert.Equal(t, "", CleanContactName("(415) 555-0111", "14155550111"))
	assert.Equal(t, "+14155559999", CleanContactName("+14155559999", "+14155550111"))
	assert.Equal(t, "", CleanContactName("   ", "+14155550111"))
}
