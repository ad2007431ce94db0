package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ErrTargetLocked marks a spreadsheet target held open by another program.
var ErrTargetLocked = errors.New("report: target locked")

// SheetColumns is the predictions spreadsheet header.
var SheetColumns = []string{"Actual_Months", "Predicted_Months", "Actual_Goal", "Predicted_Goal"}

// PredictionRow is one held-out sample's actual and predicted targets.
type PredictionRow struct {
	ActualMonths    float64
	PredictedMonths float64
	ActualGoal      int
	PredictedGoal   int
}

// SheetStatus is the outcome of a spreadsheet write.
type SheetStatus int

const (
	// SheetWritten means the file is on disk.
	SheetWritten SheetStatus = iota + 1
	// SheetSkippedLocked means the target was locked and nothing was written.
	SheetSkippedLocked
)

func (s SheetStatus) String() string {
	switch s {
	case SheetWritten:
		return "written"
	case SheetSkippedLocked:
		return "skipped: target locked"
	default:
		return "unknown"
	}
}

// SheetResult reports what happened to a spreadsheet write.
type SheetResult struct {
	Status SheetStatus
	Path   string
	// Cause is set when Status is SheetSkippedLocked; it wraps ErrTargetLocked.
	Cause error
}

// Written reports whether the file was written.
func (r SheetResult) Written() bool { return r.Status == SheetWritten }

// WritePredictions writes rows to an .xlsx file at path. A locked target is
// not an error: the result carries SheetSkippedLocked instead. Any other
// failure is returned.
func WritePredictions(path string, rows []PredictionRow) (SheetResult, error) {
	if lock, ok := lockCompanion(path); ok {
		return skipped(path, fmt.Errorf("%w: %s is held by %s", ErrTargetLocked, filepath.Base(path), filepath.Base(lock))), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return SheetResult{}, fmt.Errorf("creating predictions dir: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(SheetColumns))
	for i, c := range SheetColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return SheetResult{}, fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return SheetResult{}, err
		}
		values := []interface{}{r.ActualMonths, r.PredictedMonths, r.ActualGoal, r.PredictedGoal}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return SheetResult{}, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return skipped(path, fmt.Errorf("%w: %v", ErrTargetLocked, err)), nil
		}
		return SheetResult{}, fmt.Errorf("saving predictions: %w", err)
	}
	return SheetResult{Status: SheetWritten, Path: path}, nil
}

func skipped(path string, cause error) SheetResult {
	return SheetResult{Status: SheetSkippedLocked, Path: path, Cause: cause}
}

// lockCompanion finds an office-suite lock file for path: Excel's "~$name"
// or LibreOffice's ".~lock.name#".
func lockCompanion(path string) (string, bool) {
	dir, base := filepath.Dir(path), filepath.Base(path)
	for _, name := range []string{"~$" + base, ".~lock." + base + "#"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// ReadPredictions loads rows written by WritePredictions as strings,
// header first.
func ReadPredictions(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening predictions: %w", err)
	}
	defer func() { _ = f.Close() }()
	return f.GetRows(f.GetSheetName(0))
}
