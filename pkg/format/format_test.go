package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "999", Number(999))
	assert.Equal(t, "1,234,567", Number(1234567))
	assert.Equal(t, "-1,000", Number(-1000))
}

func TestBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3.0 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(tt.in))
	}
	assert.Equal(t, "2.0 GB", KiB(2*1024*1024))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "33.3%", Percentage(1, 3))
	assert.Equal(t, "100.0%", Percentage(5, 5))
	assert.Equal(t, "-", Percentage(1, 0))
}

func TestUptime(t *testing.T) {
	assert.Equal(t, "42s", Uptime(42*time.Second))
	assert.Equal(t, "5m", Uptime(5*time.Minute))
	assert.Equal(t, "3h 0m", Uptime(3*time.Hour))
	assert.Equal(t, "2d 2h 3m", Uptime(50*time.Hour+3*time.Minute))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "in a moment", RelativeTime(now.Add(30*time.Second), now))
	assert.Equal(t, "in 1 hour", RelativeTime(now.Add(90*time.Minute), now))
	assert.Equal(t, "in 5 minutes", RelativeTime(now.Add(5*time.Minute), now))
	assert.Equal(t, "2 days ago", RelativeTime(now.Add(-49*time.Hour), now))
	assert.Equal(t, "just now", RelativeTime(now, now))
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "-", Timestamp(time.Time{}))
	assert.NotEqual(t, "-", Timestamp(time.Now()))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Coronat...", Truncate("Coronation Street", 10))
}
