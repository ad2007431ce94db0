package cli

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{4000, "4,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1234567.8, "1,234,568"},
		{-2500.2, "-2,500"},
		{0.4, "0"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.v); got != tt.want {
			t.Errorf("FormatMoney(%g) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{125 * time.Second, "2m 5s"},
		{3725 * time.Second, "1h 2m"},
		{1400 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatScalars(t *testing.T) {
	if got := FormatMonths(12.3456); got != "12.35" {
		t.Errorf("FormatMonths = %q", got)
	}
	if got := FormatPercent(0.91234); got != "91.23%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatLoss(math.NaN()); got != "nan" {
		t.Errorf("FormatLoss(NaN) = %q", got)
	}
	if got := FormatLoss(0.123456); got != "0.1235" {
		t.Errorf("FormatLoss = %q", got)
	}
	if YesNo(true) != "YES" || YesNo(false) != "NO" {
		t.Error("YesNo tokens wrong")
	}
	if got := FormatBytes(-1); got != "?" {
		t.Errorf("FormatBytes(-1) = %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatAgo(time.Time{}, now); got != "never" {
		t.Errorf("FormatAgo(zero) = %q, want never", got)
	}
	if got := FormatAgo(now.Add(-3*time.Hour), now); !strings.HasSuffix(got, "ago") {
		t.Errorf("FormatAgo(-3h) = %q, want a past phrase", got)
	}
}
