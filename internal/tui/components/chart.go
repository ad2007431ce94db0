package components

import (
	"github.com/theirongolddev/goalcast/internal/cli"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders the trailing width values of a series in color.
func Sparkline(values []float64, width int, color lipgloss.Color) string {
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	return lipgloss.NewStyle().Foreground(color).Render(cli.RenderSparkline(values))
}
