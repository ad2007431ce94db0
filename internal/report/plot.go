// Package report renders training and evaluation artifacts: the loss-curve
// image and the predictions spreadsheet.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/theirongolddev/goalcast/internal/nn"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoHistory is returned when there is nothing to plot.
var ErrNoHistory = errors.New("report: empty training history")

var (
	trainColor = color.RGBA{R: 0x43, G: 0x85, B: 0xBE, A: 0xFF}
	valColor   = color.RGBA{R: 0xDA, G: 0x70, B: 0x2C, A: 0xFF}
)

// WriteLossPlot draws training and validation loss per epoch to a PNG at path.
// The validation curve is omitted when the run had no validation split.
func WriteLossPlot(path string, h nn.History) error {
	if len(h.Epochs) == 0 {
		return ErrNoHistory
	}

	p := plot.New()
	p.Title.Text = "Model Loss During Training"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	train, err := lossLine(h, nn.MetricLoss, trainColor)
	if err != nil {
		return err
	}
	p.Add(train)
	p.Legend.Add("Train Loss", train)

	if hasValidation(h) {
		val, err := lossLine(h, nn.MetricValLoss, valColor)
		if err != nil {
			return err
		}
		p.Add(val)
		p.Legend.Add("Validation Loss", val)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plot dir: %w", err)
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving loss plot: %w", err)
	}
	return nil
}

func lossLine(h nn.History, metric string, c color.Color) (*plotter.Line, error) {
	series := h.Series(metric)
	pts := make(plotter.XYs, len(series))
	for i, v := range series {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("plotting %s: %w", metric, err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.5)
	return line, nil
}

func hasValidation(h nn.History) bool {
	for _, e := range h.Epochs {
		if e.ValLoss != 0 {
			return true
		}
	}
	return false
}
