package http

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-10-10T10:10:10Z", time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), true},
		{"2024-10-10T10:10:10.5Z", time.Date(2024, 10, 10, 10, 10, 10, 500_000_000, time.UTC), true},
		{strconv.FormatInt(time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix(), 10), time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"-5", time.Time{}, false},
	}

	for _, tc := range cases {
		got, ok := ParseTime(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseTime(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	if got := ParseTimeDefault("", def); !got.Equal(def) {
		t.Errorf("empty input = %v, want default", got)
	}
	if got := ParseTimeDefault("2025-01-01T00:00:00Z", def); got.Equal(def) {
		t.Error("valid input fell back to default")
	}
}
