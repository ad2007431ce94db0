package components

import (
	"strings"
	"testing"

	"github.com/theirongolddev/goalcast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{80, 4, []int{20, 20, 20, 20}},
		{82, 4, []int{21, 21, 20, 20}},
		{10, 0, nil},
	}
	for _, tt := range tests {
		got := LayoutRow(tt.total, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
		}
		sum := 0
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
				break
			}
			sum += got[i]
		}
		if tt.n > 0 && sum != tt.total {
			t.Errorf("widths sum to %d, want %d", sum, tt.total)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Loss", Value: "3.2101", Delta: "val 3.4"},
		{Label: "Val goal acc", Value: "91.25%"},
	}, 60)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 60 {
			t.Errorf("line %d width = %d, want 60", i, w)
		}
	}
	if !strings.Contains(row, "\x1b[") {
		t.Error("expected styled output")
	}
}

func TestEpochBar(t *testing.T) {
	bar := EpochBar(20, 80, 70)
	if !strings.Contains(bar, "Epoch 20/80") || !strings.Contains(bar, "25%") {
		t.Errorf("EpochBar = %q", bar)
	}
	if over := EpochBar(90, 80, 70); !strings.Contains(over, "100%") {
		t.Errorf("EpochBar should clamp at 100%%: %q", over)
	}
}

func TestColorForAccuracy(t *testing.T) {
	th := theme.ByName("terminal")
	theme.SetActive(th.Name)
	defer theme.SetActive("flexoki-dark")

	tests := []struct {
		acc  float64
		want lipgloss.Color
	}{
		{0.95, th.Green},
		{0.8, th.Yellow},
		{0.6, th.Orange},
		{0.2, th.Red},
	}
	for _, tt := range tests {
		if got := ColorForAccuracy(tt.acc); got != tt.want {
			t.Errorf("ColorForAccuracy(%g) = %q, want %q", tt.acc, got, tt.want)
		}
	}
}

func TestRenderStatusBar(t *testing.T) {
	bar := RenderStatusBar(40, "[q] stop", "1m 2s ")
	if w := lipgloss.Width(bar); w != 40 {
		t.Errorf("width = %d, want 40", w)
	}
	if !strings.Contains(bar, "[q] stop") || !strings.Contains(bar, "1m 2s") {
		t.Errorf("status bar = %q", bar)
	}
}
