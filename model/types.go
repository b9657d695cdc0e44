package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the local date-time format used for timestamps in tables.
const DisplayLayout = "2006-01-02 15:04:05"

// InvalidDate is displayed for timestamps that cannot be parsed.
const InvalidDate = "Invalid Date"

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e12

// Accepted string layouts. Fractional seconds are accepted by time.Parse
// after the seconds field even when the layout omits them.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp keeps a wire timestamp exactly as received. It accepts ISO-8601
// strings and epoch numbers; the parsed value is only used for display.
type Timestamp struct {
	raw json.RawMessage
}

// NewTimestamp builds a Timestamp carrying t in RFC 3339 form.
func NewTimestamp(t time.Time) Timestamp {
	b, _ := json.Marshal(t.Format(time.RFC3339Nano))
	return Timestamp{raw: b}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

// String returns the wire form without JSON quoting.
func (t Timestamp) String() string {
	var s string
	if err := json.Unmarshal(t.raw, &s); err == nil {
		return s
	}
	return string(t.raw)
}

// Time parses the wire value. Zone-less strings are taken as UTC.
func (t Timestamp) Time() (time.Time, bool) {
	trimmed := bytes.TrimSpace(t.raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, false
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return time.Time{}, false
		}
		return parseTimestampString(s)
	}

	n, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return time.Time{}, false
	}
	if n >= epochMillisThreshold {
		return time.UnixMilli(int64(n)), true
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9)), true
}

// Display formats the timestamp in local time, or InvalidDate.
func (t Timestamp) Display() string {
	parsed, ok := t.Time()
	if !ok {
		return InvalidDate
	}
	return parsed.Local().Format(DisplayLayout)
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	// epoch sent as a string
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Timestamp{raw: []byte(s)}.Time()
	}
	return time.Time{}, false
}

// Text is a free-text field that the server may send either as a string or
// as a list. Lists are joined with commas.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*t = ""
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case trimmed[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var part Text
			if err := part.UnmarshalJSON(item); err != nil {
				return fmt.Errorf("entities item: %w", err)
			}
			parts = append(parts, string(part))
		}
		*t = Text(strings.Join(parts, ","))
		return nil
	default:
		*t = Text(trimmed)
		return nil
	}
}
