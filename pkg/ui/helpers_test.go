package ui

import (
	"testing"
	"time"
)

func TestFormatTimeRel(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "unknown"},
		{now.Add(-10 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-2 * 24 * time.Hour), "2d ago"},
		{now.Add(-14 * 24 * time.Hour), "2w ago"},
		{now.Add(-90 * 24 * time.Hour), "3mo ago"},
	}
	for _, tt := range tests {
		if got := formatTimeRelTo(tt.t, now); got != tt.want {
			t.Errorf("formatTimeRelTo(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		in     string
		max    int
		suffix string
		want   string
	}{
		{"hello", 10, "…", "hello"},
		{"hello world", 8, "…", "hello w…"},
		{"日本語テキスト", 7, "…", "日本語…"},
		{"abc", 0, "…", ""},
		{"abcdef", 2, "...", ".."},
	}
	for _, tt := range tests {
		if got := truncateRunesHelper(tt.in, tt.max, tt.suffix); got != tt.want {
			t.Errorf("truncateRunesHelper(%q, %d, %q) = %q, want %q", tt.in, tt.max, tt.suffix, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("日本", 5); got != "日本 " {
		t.Errorf("padRight wide = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Errorf("padRight long = %q", got)
	}
}
