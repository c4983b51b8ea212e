package dialpad

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kesslerio/dialpad-openclaw-skill/pkg/phone"
)

// timeFields tried in priority order when ranking calls.
var timeFields = []string{"date_started", "started_at", "start_time", "date_created", "date"}

// searchFields are the call fields examined by substring selection.
var searchFields = []string{"external_number", "from_number", "to_number", "contact"}

// extractStrings flattens a value into its string leaves. Objects and
// lists are walked recursively; numeric and boolean scalars stringify.
func extractStrings(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case bool:
		return []string{strconv.FormatBool(v)}
	case float64:
		if v == math.Trunc(v) {
			return []string{strconv.FormatInt(int64(v), 10)}
		}
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case map[string]interface{}:
		var out []string
		for _, nested := range v {
			out = append(out, extractStrings(nested)...)
		}
		return out
	case []interface{}:
		var out []string
		for _, nested := range v {
			out = append(out, extractStrings(nested)...)
		}
		return out
	default:
		return nil
	}
}

func callTextFields(call Call) []string {
	var out []string
	for _, field := range searchFields {
		out = append(out, extractStrings(call[field])...)
	}
	return out
}

// parseTimestamp accepts epoch numbers (as JSON numbers or strings) and
// RFC3339-ish strings. Returns ok=false when nothing parses.
func parseTimestamp(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case string:
		stripped := strings.TrimSpace(v)
		if stripped == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(stripped, 64); err == nil {
			return f, true
		}
		iso := strings.Replace(stripped, "Z", "+00:00", 1)
		for _, layout := range []string{
			"2006-01-02T15:04:05-07:00",
			"2006-01-02T15:04:05.999999999-07:00",
			// Offset-less strings are read as UTC.
			"2006-01-02T15:04:05",
			"2006-01-02T15:04:05.999999999",
		} {
			if t, err := time.Parse(layout, iso); err == nil {
				return float64(t.Unix()), true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

func toMillis(value interface{}) (int64, bool) {
	ts, ok := parseTimestamp(value)
	if !ok {
		return 0, false
	}
	return int64(ts), true
}

// callSortKey ranks a call by its best parsable timestamp, keeping the
// original input position (negated) as tie-break so calls without any
// timestamp still order deterministically by arrival.
func callSortKey(call Call, originalIndex int) (float64, int) {
	best := math.Inf(-1)
	for _, field := range timeFields {
		if ts, ok := parseTimestamp(call[field]); ok && ts > best {
			best = ts
		}
	}
	return best, -originalIndex
}

// SelectCall returns the most relevant call from a set: the newest by
// parsed timestamp, restricted to calls containing withValue (case
// insensitive, searched recursively through the call's text fields) when a
// filter is given. Returns nil when nothing matches.
func SelectCall(calls []Call, withValue string) Call {
	if len(calls) == 0 {
		return nil
	}

	selected := calls
	if withValue != "" {
		needle := strings.ToLower(withValue)
		selected = nil
		for _, call := range calls {
			for _, text := range callTextFields(call) {
				if strings.Contains(strings.ToLower(text), needle) {
					selected = append(selected, call)
					break
				}
			}
		}
		if len(selected) == 0 {
			return nil
		}
	}

	type ranked struct {
		call Call
		ts   float64
		tie  int
	}
	order := make([]ranked, len(selected))
	for i, call := range selected {
		ts, tie := callSortKey(call, i)
		order[i] = ranked{call: call, ts: ts, tie: tie}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].ts != order[j].ts {
			return order[i].ts > order[j].ts
		}
		return order[i].tie > order[j].tie
	})
	return order[0].call
}

// HasVoicemail reports whether a call record carries a voicemail artifact.
func HasVoicemail(call Call) bool {
	link := strings.TrimSpace(stringField(call, "voicemail_link"))
	recordingID := strings.TrimSpace(stringField(call, "voicemail_recording_id"))
	return link != "" || recordingID != ""
}

// WithinLookback reports whether the call ended inside the poll window.
// Calls with no parsable end time are excluded.
func WithinLookback(call Call, lookback time.Duration, now time.Time) bool {
	endedMs, ok := toMillis(call["date_ended"])
	if !ok {
		return false
	}
	nowMs := now.UnixMilli()
	return nowMs-lookback.Milliseconds() <= endedMs && endedMs <= nowMs
}

// CallID returns the provider call identifier, trying call_id then id.
func CallID(call Call) string {
	id := strings.TrimSpace(stringField(call, "call_id"))
	if id == "" {
		id = strings.TrimSpace(stringField(call, "id"))
	}
	return id
}

// FormatDuration renders total_duration (milliseconds) as whole seconds.
func FormatDuration(call Call) string {
	raw, ok := parseTimestamp(call["total_duration"])
	if !ok {
		return "0s"
	}
	seconds := int(math.Round(raw / 1000.0))
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%ds", seconds)
}

// CleanContactName discards contact "names" that are really just the
// caller's own number echoed back by the API.
func CleanContactName(name, fromNumber string) string {
	candidate := strings.TrimSpace(name)
	if candidate == "" {
		return ""
	}
	if phone.LooksLikeNumber(candidate) && phone.Normalize(candidate) == phone.Normalize(fromNumber) {
		return ""
	}
	return candidate
}

func stringField(call Call, key string) string {
	switch v := call[key].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
