package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"time"

	"github.com/theirongolddev/goalcast/internal/config"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/nn"
	"github.com/theirongolddev/goalcast/internal/report"
	"github.com/theirongolddev/goalcast/internal/store"
)

// ErrEmptyTestSet is returned when there is nothing to evaluate.
var ErrEmptyTestSet = errors.New("forecast: empty test set")

// Evaluator scores a saved checkpoint on held-out data and exports the
// predictions to a spreadsheet.
type Evaluator struct {
	Cfg    config.Config
	Logger *log.Logger
	// Registry, if set, records the evaluation.
	Registry *store.Registry
	Now      func() time.Time
}

// EvalResult holds the evaluation metrics and the spreadsheet outcome.
type EvalResult struct {
	CheckpointPath string
	Samples        int
	MonthsMAE      float64
	GoalAccuracy   float64
	Rows           []report.PredictionRow
	Sheet          report.SheetResult
}

// Evaluate reloads checkpoint, predicts test, and writes the predictions
// sheet. A locked sheet target is logged and does not fail the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, checkpoint string, test dataset.Dataset) (EvalResult, error) {
	res := EvalResult{CheckpointPath: checkpoint, Samples: test.Len()}
	lg := logger(e.Logger)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if test.Len() == 0 {
		return res, ErrEmptyTestSet
	}

	net, err := nn.Load(checkpoint)
	if err != nil {
		return res, fmt.Errorf("loading model: %w", err)
	}

	outs, err := net.PredictBatch(test.Inputs())
	if err != nil {
		return res, fmt.Errorf("predicting: %w", err)
	}

	res.Rows = make([]report.PredictionRow, len(outs))
	var absSum float64
	correct := 0
	for i, out := range outs {
		s := test.Samples[i]
		row := report.PredictionRow{
			ActualMonths:    s.MonthsNeeded,
			PredictedMonths: out.Months,
			ActualGoal:      boolInt(s.GoalPossible),
			PredictedGoal:   boolInt(nn.GoalPossible(out.GoalProbability)),
		}
		absSum += math.Abs(row.ActualMonths - row.PredictedMonths)
		if row.ActualGoal == row.PredictedGoal {
			correct++
		}
		res.Rows[i] = row
	}
	res.MonthsMAE = absSum / float64(len(outs))
	res.GoalAccuracy = float64(correct) / float64(len(outs))

	lg.Printf("MAE for months needed: %.2f", res.MonthsMAE)
	lg.Printf("Accuracy for goal prediction: %.2f%%", res.GoalAccuracy*100)

	stamp := now(e.Now).Format(timestampLayout)
	sheetPath := filepath.Join(e.Cfg.PredictionsDir(), "model_predictions_"+stamp+".xlsx")
	res.Sheet, err = report.WritePredictions(sheetPath, res.Rows)
	if err != nil {
		return res, err
	}
	switch res.Sheet.Status {
	case report.SheetWritten:
		lg.Printf("Predictions saved to %s", sheetPath)
	case report.SheetSkippedLocked:
		lg.Printf("ERROR: predictions not saved: %v", res.Sheet.Cause)
	}

	if e.Registry != nil {
		if err := e.record(res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Evaluator) record(res EvalResult) error {
	var runID string
	run, err := e.Registry.RunByCheckpoint(res.CheckpointPath)
	switch {
	case err == nil:
		runID = run.ID
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	_, err = e.Registry.SaveEvaluation(store.Evaluation{
		RunID:          runID,
		EvaluatedAt:    now(e.Now),
		CheckpointPath: res.CheckpointPath,
		TestSamples:    res.Samples,
		MonthsMAE:      res.MonthsMAE,
		GoalAccuracy:   res.GoalAccuracy,
		SheetPath:      res.Sheet.Path,
		SheetStatus:    res.Sheet.Status.String(),
	})
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
