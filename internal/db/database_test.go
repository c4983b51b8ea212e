package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	database, err := NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func smsEvent(messageID, from, body string) models.RawEvent {
	return models.RawEvent{
		"message_id":  messageID,
		"direction":   "inbound",
		"from_number": from,
		"to_number":   []interface{}{"+14153602954"},
		"text":        body,
		"timestamp":   "2026-08-30T18:04:05Z",
	}
}

func TestNewDatabaseRequiresDSN(t *testing.T) {
	_, err := NewDatabase("")
	assert.Error(t, err)
}

func TestStoreEvent(t *testing.T) {
	database := newTestDatabase(t)

	result, err := database.StoreEvent(smsEvent("msg-1", "+14155550111", "hello"))
	require.NoError(t, err)
	assert.True(t, result.Stored)
	require.NotNil(t, result.Record)
	assert.NotEmpty(t, result.Record.RecordID)
	assert.Equal(t, "msg-1", result.Record.MessageID)
}

func TestStoreEventNil(t *testing.T) {
	database := newTestDatabase(t)
	_, err := database.StoreEvent(nil)
	assert.Error(t, err)
}

func TestStoreEventDuplicateMessageID(t *testing.T) {
	database := newTestDatabase(t)

	first, err := database.StoreEvent(smsEvent("msg-dup", "+14155550111", "original"))
	require.NoError(t, err)
	require.True(t, first.Stored)
	assert.False(t, first.Duplicate)

	// A provider retry returns the first record, flagged as a duplicate.
	second, err := database.StoreEvent(smsEvent("msg-dup", "+14155550111", "retry"))
	require.NoError(t, err)
	assert.True(t, second.Stored)
	assert.True(t, second.Duplicate)
	require.NotNil(t, second.Record)
	assert.Equal(t, first.Record.RecordID, second.Record.RecordID)

	rows, err := database.SearchMessages("original", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStoreEventWithoutMessageID(t *testing.T) {
	database := newTestDatabase(t)

	// No message id means no dedup key: each delivery is its own row.
	for i := 0; i < 2; i++ {
		raw := models.RawEvent{
			"direction":   "inbound",
			"from_number": "+14155550111",
			"text":        "anonymous event",
		}
		result, err := database.StoreEvent(raw)
		require.NoError(t, err)
		assert.True(t, result.Stored)
	}

	rows, err := database.SearchMessages("anonymous", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStoreEventIDFallback(t *testing.T) {
	database := newTestDatabase(t)

	raw := models.RawEvent{
		"id":          "evt-9",
		"direction":   "inbound",
		"from_number": "+14155550111",
		"text":        "fallback id",
	}
	result, err := database.StoreEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "evt-9", result.Record.MessageID)
}

func TestCacheContactName(t *testing.T) {
	database := newTestDatabase(t)

	first, err := database.StoreEvent(smsEvent("msg-a", "+14155550111", "first"))
	require.NoError(t, err)
	require.NoError(t, database.CacheContactName(first.Record.RecordID, "Jane Doe"))

	// The next event from the same number inherits the cached name.
	second, err := database.StoreEvent(smsEvent("msg-b", "+14155550111", "second"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", second.Record.ContactName)
}

func TestCacheContactNameIgnoresEmptyArgs(t *testing.T) {
	database := newTestDatabase(t)
	assert.NoError(t, database.CacheContactName("", "Jane"))
	assert.NoError(t, database.CacheContactName("some-record", ""))
}

func TestSearchMessages(t *testing.T) {
	database := newTestDatabase(t)

	_, err := database.StoreEvent(smsEvent("msg-1", "+14155550111", "the quick brown fox"))
	require.NoError(t, err)
	_, err = database.StoreEvent(smsEvent("msg-2", "+14155550112", "lazy dog sleeping"))
	require.NoError(t, err)

	rows, err := database.SearchMessages("fox", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "msg-1", rows[0].MessageID)
	assert.Equal(t, "the quick brown fox", rows[0].Body)
	assert.Equal(t, "+14155550111", rows[0].FromNumber)
}

func TestSearchMessagesNoMatch(t *testing.T) {
	database := newTestDatabase(t)
	_, err := database.StoreEvent(smsEvent("msg-1", "+14155550111", "hello"))
	require.NoError(t, err)

	rows, err := database.SearchMessages("unrelated", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDatabaseClosed(t *testing.T) {
	database := newTestDatabase(t)
	require.NoError(t, database.Close())

	_, err := database.StoreEvent(smsEvent("msg-1", "+14155550111", "hello"))
	assert.Error(t, err)
	_, err = database.SearchMessages("hello", 10)
	assert.Error(t, err)
	assert.Error(t, database.CacheContactName("r", "n"))
	assert.Error(t, database.Close())
}
