package apiclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeAcceptsServerFormats(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "rfc3339 utc", raw: `"2024-05-01T10:00:00.123Z"`, want: want},
		{name: "rfc3339 offset", raw: `"2024-05-01T12:00:00.123+02:00"`, want: want},
		{name: "no zone", raw: `"2024-05-01T10:00:00.123000"`, want: want},
		{name: "no zone no fraction", raw: `"2024-05-01T10:00:00"`, want: want.Truncate(time.Second)},
		{name: "space separator", raw: `"2024-05-01 10:00:00.123"`, want: want},
		{name: "null", raw: `null`},
		{name: "empty", raw: `""`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Time
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			assert.True(t, tc.want.Equal(got.Time), "got %v want %v", got.Time, tc.want)
		})
	}
}

func TestTimeRejectsGarbage(t *testing.T) {
	var got Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &got))
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
}
