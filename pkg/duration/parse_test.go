package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"0", 0},
		{"90s", 90 * time.Second},
		{"5m30s", 5*time.Minute + 30*time.Second},
		{"5min", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", Day},
		{"1w2d", Week + 2*Day},
		{"1M", Month},
		{"1y", Year},
		{"-90s", -90 * time.Second},
		{"+90s", 90 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseDurationErrors(t *testing.T) {
	for _, in := range []string{"5", "5.5h", "h", "5x", "5 m"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{Week + 2*Day, "1w2d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, String(tt.in), "input %v", tt.in)
	}
}
