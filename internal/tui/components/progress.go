package components

import (
	"fmt"

	"github.com/theirongolddev/goalcast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// EpochBar renders "Epoch n/total" followed by a progress bar.
func EpochBar(epoch, total, width int) string {
	t := theme.Active

	pct := 0.0
	if total > 0 {
		pct = float64(epoch) / float64(total)
	}
	if pct > 1 {
		pct = 1
	}

	label := fmt.Sprintf("Epoch %d/%d", epoch, total)
	barW := width - lipgloss.Width(label) - 7
	if barW < 10 {
		barW = 10
	}

	bar := progress.New(
		progress.WithSolidFill(string(t.Accent)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	pctStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)

	return labelStyle.Render(label) + " " + bar.ViewAs(pct) + " " + pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}

// ColorForAccuracy returns red/orange/yellow/green for a 0-1 accuracy.
func ColorForAccuracy(acc float64) lipgloss.Color {
	t := theme.Active
	switch {
	case acc >= 0.9:
		return t.Green
	case acc >= 0.75:
		return t.Yellow
	case acc >= 0.5:
		return t.Orange
	default:
		return t.Red
	}
}
