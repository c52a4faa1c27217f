package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayouts are tried in order. Layouts without a zone are read as UTC;
// the server emits them for values that went through its datastore.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Time 服务端时间戳，兼容无时区格式
// Time is a server timestamp that also accepts values without a zone
type Time struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339, zone-less ISO 8601 and null.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTime parses a server timestamp. An empty string is the zero time.
func ParseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognised format", raw)
}
